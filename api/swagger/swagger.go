package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SIPODI API",
        "description": "Talent submission and verification service for school personnel (GTK)",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Login, cookie refresh and logout"},
        {"name": "Talents", "description": "GTK talent submissions"},
        {"name": "Verifications", "description": "Approve or reject pending talents"},
        {"name": "Uploads", "description": "Presigned direct uploads"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "200": {"description": "Access token. The refresh token is set as an HttpOnly cookie.", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Account inactive", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Rotate the refresh cookie and issue a new access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Refresh token missing, expired or revoked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke the refresh cookie",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/talents": {
            "get": {
                "tags": ["Talents"],
                "summary": "List talents within the caller's scope",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "talent_type", "type": "string", "enum": ["peserta_pelatihan", "pembimbing_lomba", "peserta_lomba", "minat_bakat"]},
                    {"in": "query", "name": "status", "type": "string", "enum": ["pending", "approved", "rejected"]},
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "page_size", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Talents"],
                "summary": "Submit a talent (GTK only)",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CreateTalentRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/talents/{id}": {
            "get": {
                "tags": ["Talents"],
                "summary": "Talent detail",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found or not visible", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Talents"],
                "summary": "Edit a pending talent",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Talent is no longer pending", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Talents"],
                "summary": "Delete a pending talent",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/verifications/talents/{id}/approve": {
            "post": {
                "tags": ["Verifications"],
                "summary": "Approve a pending talent",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already decided", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/verifications/talents/{id}/reject": {
            "post": {
                "tags": ["Verifications"],
                "summary": "Reject a pending talent",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/RejectTalentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Rejection reason missing", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/verifications/talents/batch/approve": {
            "post": {
                "tags": ["Verifications"],
                "summary": "Approve many talents",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/BatchRequest"}}],
                "responses": {"200": {"description": "Per-id outcome", "schema": {"$ref": "#/definitions/BatchResult"}}}
            }
        },
        "/verifications/talents/batch/reject": {
            "post": {
                "tags": ["Verifications"],
                "summary": "Reject many talents with one reason",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/BatchRequest"}}],
                "responses": {"200": {"description": "Per-id outcome", "schema": {"$ref": "#/definitions/BatchResult"}}}
            }
        },
        "/uploads/presign": {
            "post": {
                "tags": ["Uploads"],
                "summary": "Request a presigned PUT URL",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/PresignRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Unknown purpose, disallowed type or size", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/uploads/{upload_id}/confirm": {
            "post": {
                "tags": ["Uploads"],
                "summary": "Confirm a transferred upload",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "upload_id", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Session missing or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "FILE_NOT_UPLOADED", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "CreateTalentRequest": {
            "type": "object",
            "required": ["talent_type", "detail"],
            "properties": {
                "talent_type": {"type": "string"},
                "detail": {"type": "object"},
                "upload_id": {"type": "string"}
            }
        },
        "RejectTalentRequest": {
            "type": "object",
            "required": ["rejection_reason"],
            "properties": {"rejection_reason": {"type": "string"}}
        },
        "BatchRequest": {
            "type": "object",
            "required": ["ids"],
            "properties": {
                "ids": {"type": "array", "items": {"type": "string"}},
                "rejection_reason": {"type": "string"}
            }
        },
        "BatchResult": {
            "type": "object",
            "properties": {
                "approved_count": {"type": "integer"},
                "rejected_count": {"type": "integer"},
                "failed_count": {"type": "integer"},
                "failed_ids": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {"id": {"type": "string"}, "reason": {"type": "string"}}
                    }
                }
            }
        },
        "PresignRequest": {
            "type": "object",
            "required": ["filename", "size", "content_type", "upload_type"],
            "properties": {
                "filename": {"type": "string"},
                "size": {"type": "integer"},
                "content_type": {"type": "string"},
                "upload_type": {"type": "string", "enum": ["profile_photo", "talent_certificate"]}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "FieldError": {
            "type": "object",
            "properties": {
                "field": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "details": {"type": "array", "items": {"$ref": "#/definitions/FieldError"}}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "message": {"type": "string"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
