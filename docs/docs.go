// Package docs holds the OpenAPI document served at /swagger.
// Regenerate with: swag init --v3.1 -g cmd/server/main.go -o docs
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
    "openapi": "3.1.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "servers": [{"url": "{{.BasePath}}"}],
    "components": {
        "securitySchemes": {
            "BearerAuth": {"type": "http", "scheme": "bearer", "bearerFormat": "JWT"}
        },
        "schemas": {
            "dto.WebhookPayload": {
                "type": "object",
                "properties": {
                    "signature": {"type": "string"},
                    "type": {"type": "string", "enum": ["SCHOOL_FEES", "OTHER_FEES"]},
                    "payment": {"$ref": "#/components/schemas/schoolpay.PaymentRecord"}
                }
            },
            "schoolpay.PaymentRecord": {
                "type": "object",
                "properties": {
                    "schoolpayReceiptNumber": {"type": "string"},
                    "amount": {"type": "string", "example": "150000"},
                    "studentName": {"type": "string"},
                    "studentPaymentCode": {"type": "string"},
                    "studentRegistrationNumber": {"type": "string"},
                    "studentClass": {"type": "string"},
                    "sourcePaymentChannel": {"type": "string"},
                    "settlementBankCode": {"type": "string"},
                    "sourceChannelTransactionId": {"type": "string"},
                    "paymentDateAndTime": {"type": "string", "example": "2024-03-01 09:15:00"},
                    "supplementaryFeeDescription": {"type": "string"}
                }
            },
            "dto.WebhookResponse": {
                "type": "object",
                "properties": {
                    "success": {"type": "boolean"},
                    "error": {"type": "string"}
                }
            },
            "dto.SyncRequest": {
                "type": "object",
                "properties": {
                    "date": {"type": "string", "format": "date"},
                    "fromDate": {"type": "string", "format": "date"},
                    "toDate": {"type": "string", "format": "date"}
                }
            },
            "dto.SyncResponse": {
                "type": "object",
                "properties": {
                    "success": {"type": "boolean"},
                    "total": {"type": "integer"},
                    "inserted": {"type": "integer"},
                    "skipped": {"type": "integer"},
                    "autoReconciled": {"type": "integer"},
                    "message": {"type": "string"}
                }
            },
            "dto.SyncAttemptResponse": {
                "type": "object",
                "properties": {
                    "id": {"type": "string", "format": "uuid"},
                    "date": {"type": "string", "format": "date"},
                    "status": {"type": "string", "enum": ["PENDING", "RUNNING", "SUCCESS", "FAILED"]},
                    "error": {"type": "string"},
                    "permanent": {"type": "boolean"},
                    "retry_count": {"type": "integer"},
                    "started_at": {"type": "string", "format": "date-time"},
                    "completed_at": {"type": "string", "format": "date-time"},
                    "next_retry_at": {"type": "string", "format": "date-time"},
                    "sync_id": {"type": "string", "format": "uuid"},
                    "total": {"type": "integer"},
                    "inserted": {"type": "integer"},
                    "skipped": {"type": "integer"},
                    "auto_reconciled": {"type": "integer"},
                    "archive_key": {"type": "string"}
                }
            },
            "dto.SyncHistoryResponse": {
                "type": "object",
                "properties": {
                    "schedule_enabled": {"type": "boolean"},
                    "attempts": {"type": "array", "items": {"$ref": "#/components/schemas/dto.SyncAttemptResponse"}}
                }
            },
            "dto.SchoolPayErrorResponse": {
                "type": "object",
                "properties": {
                    "success": {"type": "boolean", "example": false},
                    "error": {"type": "string"}
                }
            },
            "dto.TransactionResponse": {
                "type": "object",
                "properties": {
                    "id": {"type": "string", "format": "uuid"},
                    "receipt_number": {"type": "string"},
                    "amount": {"type": "string"},
                    "student_name": {"type": "string"},
                    "student_payment_code": {"type": "string"},
                    "student_registration_number": {"type": "string"},
                    "student_class": {"type": "string"},
                    "payment_channel": {"type": "string"},
                    "settlement_bank": {"type": "string"},
                    "provider_transaction_id": {"type": "string"},
                    "payment_timestamp": {"type": "string", "format": "date-time"},
                    "kind": {"type": "string", "enum": ["SCHOOL_FEES", "OTHER_FEES"]},
                    "supplementary_fee_description": {"type": "string"},
                    "source": {"type": "string", "enum": ["webhook", "sync"]},
                    "status": {"type": "string", "enum": ["unmatched", "matched", "reconciled", "needs_attention"]},
                    "matched_student_id": {"type": "string", "format": "uuid"},
                    "linked_fee_payment_id": {"type": "string", "format": "uuid"},
                    "reconciled_at": {"type": "string", "format": "date-time"},
                    "notes": {"type": "string"},
                    "created_at": {"type": "string", "format": "date-time"},
                    "updated_at": {"type": "string", "format": "date-time"}
                }
            },
            "dto.ReconcileResponse": {
                "type": "object",
                "properties": {
                    "outcome": {"type": "string", "enum": ["skipped", "reconciled", "needs_attention"]},
                    "transaction": {"$ref": "#/components/schemas/dto.TransactionResponse"}
                }
            },
            "dto.SettingsResponse": {
                "type": "object",
                "properties": {
                    "tenant_id": {"type": "string", "format": "uuid"},
                    "school_code": {"type": "string"},
                    "api_secret": {"type": "string", "example": "********1234"},
                    "webhook_enabled": {"type": "boolean"},
                    "auto_reconcile": {"type": "boolean"},
                    "last_sync_at": {"type": "string", "format": "date-time"},
                    "configured": {"type": "boolean"}
                }
            },
            "dto.UpdateSettingsRequest": {
                "type": "object",
                "required": ["school_code", "api_secret"],
                "properties": {
                    "school_code": {"type": "string", "maxLength": 50},
                    "api_secret": {"type": "string", "maxLength": 255},
                    "webhook_enabled": {"type": "boolean"},
                    "auto_reconcile": {"type": "boolean"}
                }
            },
            "dto.HealthResponse": {
                "type": "object",
                "properties": {
                    "status": {"type": "string"},
                    "database": {"type": "string"}
                }
            },
            "dto.ErrorInfo": {
                "type": "object",
                "properties": {
                    "code": {"type": "string"},
                    "message": {"type": "string"},
                    "request_id": {"type": "string"},
                    "timestamp": {"type": "string", "format": "date-time"}
                }
            },
            "dto.Meta": {
                "type": "object",
                "properties": {
                    "total": {"type": "integer"},
                    "page": {"type": "integer"},
                    "page_size": {"type": "integer"},
                    "total_pages": {"type": "integer"}
                }
            },
            "handler.ErrorResponse": {
                "type": "object",
                "properties": {
                    "success": {"type": "boolean", "example": false},
                    "error": {"$ref": "#/components/schemas/dto.ErrorInfo"}
                }
            }
        }
    },
    "paths": {
        "/schoolpay/webhook": {
            "post": {
                "operationId": "receiveSchoolPayWebhook",
                "tags": ["schoolpay"],
                "summary": "Receive a SchoolPay payment notification",
                "requestBody": {"required": true, "content": {"application/json": {"schema": {"$ref": "#/components/schemas/dto.WebhookPayload"}}}},
                "responses": {
                    "200": {"description": "Acknowledged", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/dto.WebhookResponse"}}}},
                    "400": {"description": "Malformed payload", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/dto.WebhookResponse"}}}}
                }
            }
        },
        "/schoolpay/sync": {
            "post": {
                "operationId": "syncSchoolPayTransactions",
                "tags": ["schoolpay"],
                "summary": "Sync SchoolPay transactions",
                "security": [{"BearerAuth": []}],
                "requestBody": {"required": true, "content": {"application/json": {"schema": {"$ref": "#/components/schemas/dto.SyncRequest"}}}},
                "responses": {
                    "200": {"description": "OK", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/dto.SyncResponse"}}}},
                    "400": {"description": "Bad request", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/dto.SchoolPayErrorResponse"}}}},
                    "409": {"description": "Sync already running", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/dto.SchoolPayErrorResponse"}}}},
                    "502": {"description": "Provider failure", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/dto.SchoolPayErrorResponse"}}}}
                }
            }
        },
        "/schoolpay/sync/history": {
            "get": {
                "operationId": "listSchoolPaySyncHistory",
                "tags": ["schoolpay"],
                "summary": "List scheduled sync attempts",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "limit", "in": "query", "schema": {"type": "integer", "default": 20, "minimum": 1, "maximum": 100}}
                ],
                "responses": {
                    "200": {"description": "OK", "content": {"application/json": {"schema": {"type": "object", "properties": {
                        "success": {"type": "boolean"},
                        "data": {"$ref": "#/components/schemas/dto.SyncHistoryResponse"}
                    }}}}},
                    "400": {"description": "Bad request", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/handler.ErrorResponse"}}}}
                }
            }
        },
        "/schoolpay/transactions": {
            "get": {
                "operationId": "listSchoolPayTransactions",
                "tags": ["schoolpay"],
                "summary": "List SchoolPay transactions",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "page", "in": "query", "schema": {"type": "integer", "default": 1}},
                    {"name": "page_size", "in": "query", "schema": {"type": "integer", "default": 20, "maximum": 100}},
                    {"name": "status", "in": "query", "schema": {"type": "string", "enum": ["unmatched", "matched", "reconciled", "needs_attention"]}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad request", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/handler.ErrorResponse"}}}}
                }
            }
        },
        "/schoolpay/transactions/{id}": {
            "get": {
                "operationId": "getSchoolPayTransaction",
                "tags": ["schoolpay"],
                "summary": "Get a SchoolPay transaction",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/handler.ErrorResponse"}}}}
                }
            }
        },
        "/schoolpay/transactions/{id}/reconcile": {
            "post": {
                "operationId": "reconcileSchoolPayTransaction",
                "tags": ["schoolpay"],
                "summary": "Reconcile a matched transaction",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/handler.ErrorResponse"}}}},
                    "422": {"description": "Transaction is not matched", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/handler.ErrorResponse"}}}}
                }
            }
        },
        "/schoolpay/settings": {
            "get": {
                "operationId": "getSchoolPaySettings",
                "tags": ["schoolpay"],
                "summary": "Get SchoolPay settings",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "operationId": "updateSchoolPaySettings",
                "tags": ["schoolpay"],
                "summary": "Configure SchoolPay",
                "security": [{"BearerAuth": []}],
                "requestBody": {"required": true, "content": {"application/json": {"schema": {"$ref": "#/components/schemas/dto.UpdateSettingsRequest"}}}},
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad request", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/handler.ErrorResponse"}}}}
                }
            }
        },
        "/health": {
            "get": {
                "operationId": "getHealth",
                "tags": ["system"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/dto.HealthResponse"}}}},
                    "503": {"description": "Database unavailable", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/dto.HealthResponse"}}}}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "SchoolPay Reconciliation API",
	Description:      "Ingests SchoolPay fee payments by webhook and on-demand sync, matches them to students and reconciles them against fee records.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
