package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Room Allocation API",
        "description": "Assigns classrooms to class demands per semester and explains every decision.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Allocation", "description": "Allocation runs, decision logs and reports"},
        {"name": "Scoring", "description": "Scoring weights and rules"},
        {"name": "Metrics", "description": "Operational metrics"}
    ],
    "paths": {
        "/allocations/runs": {
            "get": {
                "tags": ["Allocation"],
                "summary": "List allocation runs",
                "parameters": [
                    {"name": "semesterId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["RUNNING", "COMPLETED", "ABORTED"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Allocation"],
                "summary": "Run room allocation for one or more semesters",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RunAllocationRequest"}}
                ],
                "responses": {
                    "200": {"description": "Finished runs", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Queued runs", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Semester already running", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/allocations/runs/{id}": {
            "get": {
                "tags": ["Allocation"],
                "summary": "Get an allocation run",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/allocations/runs/{id}/decisions": {
            "get": {
                "tags": ["Allocation"],
                "summary": "List decision records of a run",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "disciplineCode", "in": "query", "type": "string"},
                    {"name": "allocated", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/allocations/runs/{id}/report": {
            "get": {
                "tags": ["Allocation"],
                "summary": "Aggregate report of a run",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "disciplineCode", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/allocations/runs/{id}/export": {
            "get": {
                "tags": ["Allocation"],
                "summary": "Export a decision log",
                "produces": ["application/json", "text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["json", "csv", "pdf"]},
                    {"name": "disciplineCode", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/allocations/demands/{id}/candidates": {
            "get": {
                "tags": ["Allocation"],
                "summary": "Score every room for one demand without committing",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Reference data missing", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/allocations/schedules/decode": {
            "post": {
                "tags": ["Allocation"],
                "summary": "Decode a raw schedule string",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DecodeScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed schedule", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scoring-config": {
            "get": {
                "tags": ["Scoring"],
                "summary": "Active scoring configuration",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scoring-config/reload": {
            "post": {
                "tags": ["Scoring"],
                "summary": "Reload scoring documents from disk",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Rejected, previous configuration kept", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scoring-config/overrides": {
            "put": {
                "tags": ["Scoring"],
                "summary": "Replace user overrides",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateScoringOverridesRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Operational metrics snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "RunAllocationRequest": {
            "type": "object",
            "properties": {
                "semesterId": {"type": "string"},
                "semesterIds": {"type": "array", "items": {"type": "string"}},
                "async": {"type": "boolean"},
                "persist": {"type": "boolean"}
            }
        },
        "DecodeScheduleRequest": {
            "type": "object",
            "required": ["schedule"],
            "properties": {
                "schedule": {"type": "string", "example": "24M12 6T34"}
            }
        },
        "UpdateScoringOverridesRequest": {
            "type": "object",
            "properties": {
                "weights": {"type": "object", "additionalProperties": {"type": "integer"}},
                "rules": {"type": "object", "additionalProperties": {"type": "boolean"}}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
