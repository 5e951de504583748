// Package docs holds the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/user/register/new": {
            "post": {
                "description": "Create an account and redirect to the user page",
                "consumes": ["application/x-www-form-urlencoded", "application/json"],
                "tags": ["user"],
                "summary": "Register a user",
                "parameters": [
                    {"description": "Registration form", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.RegisterRequest"}}
                ],
                "responses": {
                    "302": {"description": "Found"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/user/login": {
            "post": {
                "description": "Verify credentials, set the session cookie and return the profile. Unknown users and wrong passwords both answer false.",
                "consumes": ["application/x-www-form-urlencoded", "application/json"],
                "produces": ["application/json"],
                "tags": ["user"],
                "summary": "Log in",
                "parameters": [
                    {"description": "Credentials", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Profile"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/user/login/check-user": {
            "post": {
                "consumes": ["application/x-www-form-urlencoded", "application/json"],
                "produces": ["application/json"],
                "tags": ["user"],
                "summary": "Check whether a user exists",
                "parameters": [
                    {"description": "Username", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.CheckUserRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Profile"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/user/logout": {
            "post": {
                "description": "Clear the session cookie and revoke its token",
                "tags": ["user"],
                "summary": "Log out",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/editor/cover-photo": {
            "post": {
                "description": "Resize, store and set the session user's cover photo",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["editor"],
                "summary": "Upload a cover photo",
                "parameters": [
                    {"type": "file", "description": "Image file", "name": "cover_photo", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.PhotoResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/editor/photos": {
            "get": {
                "produces": ["application/json"],
                "tags": ["editor"],
                "summary": "List the session user's photos",
                "parameters": [
                    {"type": "integer", "description": "Page size", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Offset", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/server.PhotoResponse"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "details": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "models.Profile": {
            "type": "object",
            "properties": {
                "avatar": {"type": "string"},
                "bio": {"type": "string"},
                "cover_photo": {"type": "string"},
                "created_at": {"type": "string"},
                "email": {"type": "string"},
                "first_name": {"type": "string"},
                "forHire": {"type": "boolean"},
                "id": {"type": "integer"},
                "last_name": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "server.CheckUserRequest": {
            "type": "object",
            "properties": {"username": {"type": "string"}}
        },
        "server.LoginRequest": {
            "type": "object",
            "properties": {
                "password": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "server.PhotoResponse": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "hash": {"type": "string"},
                "height": {"type": "integer"},
                "id": {"type": "integer"},
                "kind": {"type": "string"},
                "size_bytes": {"type": "integer"},
                "url": {"type": "string"},
                "webp_url": {"type": "string"},
                "width": {"type": "integer"}
            }
        },
        "server.RegisterRequest": {
            "type": "object",
            "properties": {
                "bio": {"type": "string"},
                "email": {"type": "string"},
                "first_name": {"type": "string"},
                "for_hire": {"type": "boolean"},
                "last_name": {"type": "string"},
                "password": {"type": "string"},
                "username": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:9000",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Folio API",
	Description:      "Portfolio site with accounts, sessions and cover photos",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
