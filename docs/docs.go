// Package docs holds the swagger description of the settlement API
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
        "/api/v1/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "Service is healthy", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/nowpayments/ipn": {
            "post": {
                "description": "Verifies the x-nowpayments-sig header and settles the reported payment. A non-2xx answer asks the gateway to redeliver.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Settlement"],
                "summary": "NOWPayments IPN webhook",
                "parameters": [
                    {"type": "string", "description": "HMAC-SHA512 of the sorted JSON body", "name": "x-nowpayments-sig", "in": "header"},
                    {"description": "IPN payload", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.NOWPaymentsIPNRequest"}}
                ],
                "responses": {
                    "200": {"description": "Notification accepted", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Malformed or incomplete payload", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "401": {"description": "Invalid signature", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "503": {"description": "Settlement temporarily unavailable", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/admin/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Admin Authentication"],
                "summary": "Admin login",
                "parameters": [
                    {"description": "Admin login data", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.AdminLoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Login successful", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "401": {"description": "Incorrect credentials or admin not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "403": {"description": "Admin inactive", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/admin/settlement-reviews": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Admin Settlement Reviews"],
                "summary": "List settlement reviews",
                "parameters": [
                    {"type": "string", "description": "open or resolved", "name": "status", "in": "query"},
                    {"type": "string", "description": "Settlement stage", "name": "stage", "in": "query"},
                    {"type": "string", "description": "Payment ID", "name": "payment_id", "in": "query"},
                    {"type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "description": "Page size", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Reviews retrieved", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/admin/settlement-reviews/export": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "tags": ["Admin Settlement Reviews"],
                "summary": "Export settlement reviews",
                "responses": {
                    "200": {"description": "Excel workbook", "schema": {"type": "file"}}
                }
            }
        },
        "/api/v1/admin/settlement-reviews/{uuid}/resolve": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Admin Settlement Reviews"],
                "summary": "Resolve settlement review",
                "parameters": [
                    {"type": "string", "description": "Review UUID", "name": "uuid", "in": "path", "required": true},
                    {"description": "Resolution", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.ResolveSettlementReviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "Review resolved", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Review not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "409": {"description": "Review already resolved", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/internal/pending-deposits": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Internal"],
                "summary": "Register pending deposit",
                "parameters": [
                    {"type": "string", "description": "Internal API key", "name": "X-API-Key", "in": "header", "required": true},
                    {"description": "Payment intent", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreatePendingDepositRequest"}}
                ],
                "responses": {
                    "201": {"description": "Pending deposit stored", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "409": {"description": "Pending deposit already exists", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "dto.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {},
                "error": {}
            }
        },
        "dto.NOWPaymentsIPNRequest": {
            "type": "object",
            "properties": {
                "payment_id": {"type": "string"},
                "parent_payment_id": {"type": "string"},
                "payment_status": {"type": "string"},
                "pay_currency": {"type": "string"},
                "actually_paid": {"type": "string"},
                "price_amount": {"type": "string"},
                "price_currency": {"type": "string"},
                "order_id": {"type": "string"}
            }
        },
        "dto.AdminLoginRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "dto.ResolveSettlementReviewRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["dismiss", "remove_pending", "retry"]},
                "note": {"type": "string"}
            }
        },
        "dto.CreatePendingDepositRequest": {
            "type": "object",
            "properties": {
                "payment_id": {"type": "string"},
                "user_id": {"type": "integer"},
                "currency": {"type": "string"},
                "target_fiat_amount": {"type": "string"},
                "expected_crypto_amount": {"type": "string"},
                "is_purchase": {"type": "boolean"},
                "basket_snapshot": {"type": "object"},
                "discount_code_used": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "IPN Settlement API",
	Description:      "Settles NOWPayments instant payment notifications against pending deposits.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
