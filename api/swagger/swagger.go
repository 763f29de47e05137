package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "ParishHub ChMS API",
        "description": "Church management API: ministries, members, shift rotation, events, tasks, inventory.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Login, token refresh and session management"},
        {"name": "Users", "description": "Staff and volunteer accounts"},
        {"name": "Ministries", "description": "Ministry directory"},
        {"name": "Members", "description": "Ministry membership and availability"},
        {"name": "Shifts", "description": "Shift slots and the rotation engine"},
        {"name": "Events", "description": "Events, recurrence and registrations"},
        {"name": "Tasks", "description": "Operational task tracking"},
        {"name": "Inventory", "description": "Supplies and equipment stock"},
        {"name": "Settings", "description": "Key-value configuration"},
        {"name": "Dashboard", "description": "Aggregated overview"},
        {"name": "Imports", "description": "Member CSV import"},
        {"name": "Exports", "description": "Roster and schedule exports"}
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
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
