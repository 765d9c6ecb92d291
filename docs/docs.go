// Package docs registers the Swagger document served at /docs.
// Regenerate with: swag init -g cmd/server/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/pages": {
            "post": {
                "produces": ["application/json"],
                "tags": ["pages"],
                "summary": "Open a page",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/api/pages/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["pages"],
                "summary": "Render a page",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/pages/{id}/signup": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Sign up with email and password",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/prefs.SignUpForm"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}
            }
        },
        "/api/pages/{id}/signin": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Sign in with email and password",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.signInReq"}}
                ],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/pages/{id}/resend-verification": {
            "post": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Resend the verification email",
                "description": "Limited per page: 60s cooldown, 3 sends per hour.",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "429": {"description": "Too Many Requests"}}
            }
        },
        "/api/pages/{id}/account": {
            "delete": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Delete the signed-in account",
                "description": "Reauthenticates with the password, deletes the preference record, then the identity.",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.passwordReq"}}
                ],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/pages/{id}/google": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Google consent URL for this page",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}
            }
        },
        "/api/pages/{id}/filter": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["preferences"],
                "summary": "Filter the Available companies",
                "description": "Debounced 300ms; poll the page to see the result.",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.filterReq"}}
                ],
                "responses": {"202": {"description": "Accepted"}, "403": {"description": "Forbidden"}}
            }
        },
        "/api/pages/{id}/save": {
            "post": {
                "produces": ["application/json"],
                "tags": ["preferences"],
                "summary": "Save all preferences",
                "description": "Writes companies, job types, experience levels and locations in one update. Last write wins.",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "500": {"description": "Internal Server Error"}}
            }
        },
        "/api/auth/verify": {
            "get": {
                "tags": ["auth"],
                "summary": "Confirm an emailed verification link",
                "parameters": [{"type": "string", "name": "token", "in": "query", "required": true}],
                "responses": {"302": {"description": "Found"}, "400": {"description": "Bad Request"}}
            }
        }
    },
    "definitions": {
        "prefs.SignUpForm": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "confirmPassword": {"type": "string"},
                "companies": {"type": "array", "items": {"type": "string"}},
                "jobTypes": {"type": "array", "items": {"type": "string"}},
                "experienceLevels": {"type": "array", "items": {"type": "string"}},
                "locations": {"type": "array", "items": {"type": "string"}}
            }
        },
        "http.signInReq": {
            "type": "object",
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "http.passwordReq": {
            "type": "object",
            "properties": {"password": {"type": "string"}}
        },
        "http.filterReq": {
            "type": "object",
            "properties": {"term": {"type": "string"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "DailyJobs API",
	Description:      "Sign-up, email verification and company preferences for DailyJobs alerts.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
