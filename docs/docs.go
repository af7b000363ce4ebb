// Package docs registers the OpenAPI description served under /swagger.
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
        "/connect": {
            "get": {
                "security": [{"BasicAuth": []}],
                "description": "Credentials are sent with HTTP Basic authentication.",
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Open a session",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.ConnectResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/disconnect": {
            "get": {
                "security": [{"TokenAuth": []}],
                "tags": ["auth"],
                "summary": "Close the current session",
                "responses": {
                    "204": {"description": "No Content"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/files": {
            "get": {
                "security": [{"TokenAuth": []}],
                "produces": ["application/json"],
                "tags": ["files"],
                "summary": "List the caller's files in a folder",
                "parameters": [
                    {"type": "string", "description": "Parent folder ID, root when absent", "name": "parentId", "in": "query"},
                    {"type": "integer", "description": "Zero based page", "name": "page", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.FileView"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"TokenAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["files"],
                "summary": "Create a file, image or folder",
                "parameters": [
                    {"description": "Upload payload, data is base64", "name": "file", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.UploadRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.FileView"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/files/{id}": {
            "get": {
                "security": [{"TokenAuth": []}],
                "produces": ["application/json"],
                "tags": ["files"],
                "summary": "Get file metadata",
                "parameters": [
                    {"type": "integer", "description": "File ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.FileView"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/files/{id}/data": {
            "get": {
                "security": [{"TokenAuth": []}],
                "produces": ["application/octet-stream"],
                "tags": ["files"],
                "summary": "Download file content or a thumbnail",
                "parameters": [
                    {"type": "integer", "description": "File ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Thumbnail width (500, 250 or 100)", "name": "size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/files/{id}/publish": {
            "put": {
                "security": [{"TokenAuth": []}],
                "produces": ["application/json"],
                "tags": ["files"],
                "summary": "Make a file public",
                "parameters": [
                    {"type": "integer", "description": "File ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.FileView"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/files/{id}/unpublish": {
            "put": {
                "security": [{"TokenAuth": []}],
                "produces": ["application/json"],
                "tags": ["files"],
                "summary": "Make a file private",
                "parameters": [
                    {"type": "integer", "description": "File ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.FileView"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["app"],
                "summary": "Number of users and files",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.Stats"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["app"],
                "summary": "Liveness of Redis and MySQL",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.Status"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/service.Status"}}
                }
            }
        },
        "/users": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Create user",
                "parameters": [
                    {"description": "User payload", "name": "user", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.CreateUserRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.UserResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/users/me": {
            "get": {
                "security": [{"TokenAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.UserResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "errors.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "handler.ConnectResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"}
            }
        },
        "handler.CreateUserRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "handler.UploadRequest": {
            "type": "object",
            "properties": {
                "data": {"type": "string"},
                "isPublic": {"type": "boolean"},
                "kind": {"type": "string"},
                "name": {"type": "string"},
                "parentId": {"type": "string"},
                "type": {"type": "string"}
            }
        },
        "handler.UserResponse": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "id": {"type": "integer"}
            }
        },
        "model.FileView": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "isPublic": {"type": "boolean"},
                "kind": {"type": "string", "enum": ["folder", "file", "image"]},
                "name": {"type": "string"},
                "parentId": {"type": "integer"},
                "userId": {"type": "integer"}
            }
        },
        "service.Stats": {
            "type": "object",
            "properties": {
                "files": {"type": "integer"},
                "users": {"type": "integer"}
            }
        },
        "service.Status": {
            "type": "object",
            "properties": {
                "db": {"type": "boolean"},
                "redis": {"type": "boolean"}
            }
        }
    },
    "securityDefinitions": {
        "BasicAuth": {
            "type": "basic"
        },
        "TokenAuth": {
            "type": "apiKey",
            "name": "X-Token",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Files Manager API",
	Description:      "Upload, organize and share files. Image thumbnails are generated in the background.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
