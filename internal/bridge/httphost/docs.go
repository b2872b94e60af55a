package httphost

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/ping": {
            "get": {
                "summary": "Liveness probe",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/invocations": {
            "post": {
                "summary": "Run the user transform on the request body",
                "description": "The response content type follows the Accept header, then Content-Type.",
                "consumes": ["*/*"],
                "produces": ["*/*"],
                "responses": {
                    "200": {"description": "Transform output"},
                    "204": {"description": "No response"},
                    "400": {"description": "Unreadable or non UTF-8 body", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "413": {"description": "Body too large", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "500": {"description": "Transform or initialization failed", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "modelshim inference bridge",
	Description:      "HTTP host for the lazily initialized user transform.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
