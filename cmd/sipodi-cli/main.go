// Command sipodi-cli uploads a certificate or profile photo through the presigned upload
// flow and prints the confirmed upload_id for use in a later talent or profile mutation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/noah-isme/sipodi-api/pkg/client"
)

func main() {
	profilePath := flag.String("profile", defaultProfilePath(), "path to the YAML profile")
	purpose := flag.String("purpose", string(client.PurposeTalentCertificate), "upload purpose: talent_certificate or profile_photo")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: sipodi-cli [-profile path] [-purpose kind] <file>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*profilePath, client.UploadPurpose(*purpose), flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(profilePath string, purpose client.UploadPurpose, path string) error {
	profile, err := LoadProfile(profilePath)
	if err != nil {
		return err
	}
	password := os.Getenv(passwordEnv)
	if password == "" {
		return fmt.Errorf("%s is not set", passwordEnv)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}
	contentType, err := detectContentType(file, path)
	if err != nil {
		return err
	}

	api, err := client.New(profile.BaseURL, client.WithHTTPClient(&http.Client{Timeout: profile.Timeout}))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := api.Login(ctx, profile.Email, password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer api.Logout(context.Background())

	p := tea.NewProgram(newUploadModel(filepath.Base(path), info.Size(), cancel))
	upload := api.NewUpload(client.UploadFile{
		Filename:    filepath.Base(path),
		Size:        info.Size(),
		ContentType: contentType,
		Purpose:     purpose,
		Body:        file,
	}, func(sent, total int64) {
		p.Send(progressMsg{sent: sent, total: total})
	})
	go runPipeline(ctx, upload, p.Send)

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	m := final.(uploadModel)
	if m.err != nil {
		return describe(m.err)
	}
	fmt.Println(m.result.UploadID)
	return nil
}

// runPipeline drives the upload step by step so the view can follow each stage.
func runPipeline(ctx context.Context, upload *client.Upload, send func(tea.Msg)) {
	if _, err := upload.Presign(ctx); err != nil {
		send(doneMsg{err: err})
		return
	}
	send(stageMsg(client.UploadTransferring))
	if err := upload.Transfer(ctx); err != nil {
		send(doneMsg{err: err})
		return
	}
	result, err := upload.Confirm(ctx)
	send(doneMsg{result: result, err: err})
}

func detectContentType(file *os.File, path string) (string, error) {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
			return mediaType, nil
		}
	}
	head := make([]byte, 512)
	n, err := file.Read(head)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read file: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind file: %w", err)
	}
	return http.DetectContentType(head[:n]), nil
}

// describe turns pipeline errors into operator-facing messages.
func describe(err error) error {
	var (
		vErr *client.ValidationError
		tErr *client.TransferError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return errors.New("upload abandoned")
	case errors.As(err, &vErr):
		for _, d := range vErr.Details {
			err = fmt.Errorf("%w; %s: %s", err, d.Field, d.Message)
		}
		return err
	case errors.As(err, &tErr):
		return fmt.Errorf("transfer to storage failed, nothing was confirmed: %w", err)
	}
	return err
}
