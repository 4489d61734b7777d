// Package docs registers the gateway's OpenAPI document with swag so that
// http-swagger can serve it under /swagger/doc.json.
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
        "/health": {
            "get": {
                "description": "Always 200; store and queue problems are reported in the body.",
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Service health",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.HealthReport"}}
                }
            }
        },
        "/source-candidates": {
            "post": {
                "description": "Runs search, enrichment, scoring and outreach inline and answers with the top candidates,\nbest fit first. Nothing is queued or cached. limit is capped at 10.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sourcing"],
                "summary": "Source candidates synchronously",
                "parameters": [
                    {
                        "description": "requirement text, search method (rapid_api|google_crawler), limit (1..10)",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/httptransport.sourceCandidatesDTO"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.SourceResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/httptransport.apiError"}}
                }
            }
        },
        "/jobs": {
            "get": {
                "description": "Newest first. Completed jobs carry candidate urls and scores only.",
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "List jobs",
                "parameters": [
                    {"type": "string", "description": "in_progress | completed | failed", "name": "status", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.JobList"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.apiError"}}
                }
            },
            "post": {
                "description": "Answers from the result cache when the same request was served recently (200, status=completed),\notherwise records a queued job and enqueues it for the worker pool (202).",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Submit a sourcing job",
                "parameters": [
                    {
                        "description": "requirement text, search method (rapid_api|google_crawler), limit (1..50)",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/httptransport.createJobDTO"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.SubmitResponse"}},
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/service.SubmitResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/httptransport.apiError"}}
                }
            }
        },
        "/jobs/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Get job status",
                "parameters": [
                    {"type": "string", "description": "job id (uuid)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/entity.StatusRecord"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.apiError"}}
                }
            }
        },
        "/jobs/{id}/cache": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["jobs"],
                "description": "Unknown ids, including ones that are not uuids, answer deleted=false.",
                "summary": "Delete a job's status and result",
                "parameters": [
                    {"type": "string", "description": "job id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.deleteCacheResp"}}
                }
            }
        },
        "/jobs/{id}/export.xlsx": {
            "get": {
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "tags": ["jobs"],
                "summary": "Export job result as XLSX",
                "parameters": [
                    {"type": "string", "description": "job id (uuid)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httptransport.apiError"}}
                }
            }
        },
        "/jobs/{id}/result": {
            "get": {
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Get job result",
                "parameters": [
                    {"type": "string", "description": "job id (uuid)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/entity.JobResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httptransport.apiError"}}
                }
            }
        }
    },
    "definitions": {
        "entity.CandidateRecord": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "headline": {"type": "string"},
                "location": {"type": "string"},
                "linkedin_url": {"type": "string"},
                "skills": {"type": "array", "items": {"type": "string"}},
                "score": {"type": "number"},
                "score_breakdown": {"$ref": "#/definitions/entity.ScoreBreakdown"},
                "recommendation": {"type": "string"},
                "reasoning": {"type": "string"},
                "passed": {"type": "boolean"},
                "outreach_message": {"type": "string"},
                "enriched": {"type": "boolean"},
                "degraded_stages": {"type": "array", "items": {"type": "string"}}
            }
        },
        "entity.JobResult": {
            "type": "object",
            "properties": {
                "job_id": {"type": "string"},
                "total_candidates": {"type": "integer"},
                "passed_candidates": {"type": "integer"},
                "failed_candidates": {"type": "integer"},
                "pass_rate": {"type": "string"},
                "candidates": {"type": "array", "items": {"$ref": "#/definitions/entity.CandidateRecord"}},
                "cached": {"type": "boolean"},
                "search_method": {"type": "string"},
                "search_query": {"type": "string"},
                "ai_keywords_used": {"type": "boolean"},
                "search_time": {"type": "number"},
                "scoring_time": {"type": "number"},
                "completed_at": {"type": "string"}
            }
        },
        "entity.ScoreBreakdown": {
            "type": "object",
            "properties": {
                "education": {"type": "number"},
                "career_trajectory": {"type": "number"},
                "company_relevance": {"type": "number"},
                "experience_match": {"type": "number"},
                "location_match": {"type": "number"},
                "tenure": {"type": "number"}
            }
        },
        "entity.StatusRecord": {
            "type": "object",
            "properties": {
                "job_id": {"type": "string"},
                "status": {"type": "string", "enum": ["queued", "processing", "completed", "failed"]},
                "created_at": {"type": "string"},
                "started_at": {"type": "string"},
                "completed_at": {"type": "string"},
                "progress": {"type": "integer"},
                "message": {"type": "string"},
                "error": {"type": "string"},
                "total_candidates": {"type": "integer"},
                "passed_candidates": {"type": "integer"},
                "search_method": {"type": "string"},
                "fingerprint": {"type": "string"}
            }
        },
        "httptransport.apiError": {
            "type": "object",
            "properties": {"message": {"type": "string"}}
        },
        "httptransport.createJobDTO": {
            "type": "object",
            "properties": {
                "job_description": {"type": "string"},
                "search_method": {"type": "string", "enum": ["rapid_api", "google_crawler"]},
                "limit": {"type": "integer", "minimum": 1, "maximum": 50}
            }
        },
        "httptransport.sourceCandidatesDTO": {
            "type": "object",
            "properties": {
                "job_description": {"type": "string"},
                "search_method": {"type": "string", "enum": ["rapid_api", "google_crawler"]},
                "limit": {"type": "integer", "minimum": 1, "maximum": 10}
            }
        },
        "httptransport.deleteCacheResp": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "job_id": {"type": "string"},
                "deleted": {"type": "boolean"}
            }
        },
        "service.HealthReport": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "timestamp": {"type": "string"},
                "redis": {"type": "string"},
                "queue": {"$ref": "#/definitions/service.QueueStats"},
                "queue_error": {"type": "string"}
            }
        },
        "service.JobList": {
            "type": "object",
            "properties": {
                "total_jobs": {"type": "integer"},
                "status_filter": {"type": "string"},
                "jobs": {"type": "array", "items": {"type": "object"}}
            }
        },
        "service.QueueStats": {
            "type": "object",
            "properties": {
                "pending": {"type": "integer"},
                "processing": {"type": "integer"}
            }
        },
        "service.SourceResponse": {
            "type": "object",
            "properties": {
                "job_id": {"type": "string"},
                "candidates_found": {"type": "integer"},
                "search_method": {"type": "string"},
                "processing_time_seconds": {"type": "number"},
                "top_candidates": {"type": "array", "items": {"$ref": "#/definitions/service.SourcedCandidate"}},
                "summary": {"$ref": "#/definitions/service.SourcingSummary"}
            }
        },
        "service.SourcedCandidate": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "linkedin_url": {"type": "string"},
                "fit_score": {"type": "number"},
                "score_breakdown": {"$ref": "#/definitions/entity.ScoreBreakdown"},
                "recommendation": {"type": "string"},
                "key_characteristics": {"type": "array", "items": {"type": "string"}},
                "job_match_highlights": {"type": "array", "items": {"type": "string"}},
                "personalized_outreach_message": {"type": "string"}
            }
        },
        "service.SourcingSummary": {
            "type": "object",
            "properties": {
                "average_fit_score": {"type": "number"},
                "candidates_above_7": {"type": "integer"},
                "search_query_used": {"type": "string"},
                "ai_keywords_extracted": {"type": "boolean"}
            }
        },
        "service.SubmitResponse": {
            "type": "object",
            "properties": {
                "job_id": {"type": "string"},
                "status": {"type": "string"},
                "message": {"type": "string"},
                "data": {"$ref": "#/definitions/entity.JobResult"}
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
	Title:            "Talent Sourcing API",
	Description:      "Candidate sourcing: submit a requirement, poll status, read ranked candidates.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
