// Package docs provides the OpenAPI document served by the swagger UI.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "termsOfService": "http://example.com/terms/",
        "contact": {
            "name": "API Support",
            "url": "http://www.example.com/support",
            "email": "support@example.com"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "Health check",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "object", "additionalProperties": {"type": "string"}}
                    }
                }
            }
        },
        "/api/webhooks/stripe": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["text/plain"],
                "tags": ["Webhook"],
                "summary": "Stripe Webhook",
                "description": "Handles Stripe subscription lifecycle events. The request body is the raw Stripe event; responses are plain text.",
                "responses": {
                    "200": {"description": "event handled", "schema": {"type": "string"}},
                    "400": {"description": "Webhook error", "schema": {"type": "string"}}
                }
            }
        },
        "/api/v1/user/subscription": {
            "get": {
                "produces": ["application/json"],
                "tags": ["User"],
                "summary": "Get User Subscription",
                "parameters": [
                    {"type": "string", "name": "user_id", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/admin/list_subscriptions": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "List Subscriptions (Admin)",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8888",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Mintleaf Billing API",
	Description:      "Subscription lifecycle backend for the Mintleaf budgeting app, driven by Stripe webhooks.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
