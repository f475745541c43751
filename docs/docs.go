// Package docs registers the OpenAPI description served under /swagger.
package docs

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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/flights/{id}": {
            "get": {
                "summary": "Get flight",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/flights/{id}/availability": {
            "get": {
                "summary": "Get seat availability per class",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/bookings": {
            "post": {
                "security": [{"BearerAuth": []}],
                "summary": "Create booking (idempotent)",
                "parameters": [
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateBookingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request"},
                    "404": {"description": "Flight not found"},
                    "409": {"description": "Insufficient seats"},
                    "429": {"description": "Rate limited"},
                    "503": {"description": "Store unavailable"}
                }
            }
        },
        "/bookings/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "summary": "Get booking",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}
            }
        },
        "/bookings/{id}/confirm-payment": {
            "post": {
                "security": [{"BearerAuth": []}],
                "summary": "Confirm payment",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ConfirmPaymentRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Booking not pending"}}
            }
        },
        "/bookings/{id}/cancel": {
            "post": {
                "security": [{"BearerAuth": []}],
                "summary": "Cancel booking",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Already cancelled"},
                    "422": {"description": "Cancellation window closed"}
                }
            }
        },
        "/me/bookings": {
            "get": {
                "security": [{"BearerAuth": []}],
                "summary": "List my bookings",
                "parameters": [
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/flights": {
            "get": {
                "security": [{"BearerAuth": []}],
                "summary": "List flights",
                "parameters": [
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/flights/{id}/status": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "summary": "Update flight status",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateFlightStatusRequest"}}
                ],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}
            }
        },
        "/admin/users/{id}/bookings": {
            "get": {
                "security": [{"BearerAuth": []}],
                "summary": "List a user's bookings",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/bookings/expire": {
            "post": {
                "security": [{"BearerAuth": []}],
                "summary": "Expire stale pending bookings now",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/reports/monthly-revenue": {
            "get": {
                "security": [{"BearerAuth": []}],
                "summary": "Monthly revenue report",
                "parameters": [
                    {"type": "integer", "name": "year", "in": "query", "required": true},
                    {"type": "integer", "name": "month", "in": "query", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        }
    },
    "definitions": {
        "CreateBookingRequest": {
            "type": "object",
            "required": ["outbound_flight_id", "seat_class", "passengers"],
            "properties": {
                "outbound_flight_id": {"type": "integer"},
                "return_flight_id": {"type": "integer"},
                "seat_class": {"type": "string", "enum": ["economy", "firstClass"]},
                "passengers": {"type": "integer", "minimum": 1}
            }
        },
        "ConfirmPaymentRequest": {
            "type": "object",
            "required": ["payment_method"],
            "properties": {
                "payment_method": {"type": "string", "enum": ["credit_card", "mobile_money"]},
                "payment_details": {"type": "object"}
            }
        },
        "UpdateFlightStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["scheduled", "cancelled", "completed"]}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "flightbook API",
	Description:      "Seat inventory and booking lifecycle for scheduled flights.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
