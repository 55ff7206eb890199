// Package docs contains the generated swagger documentation.
// Run `swag init -g internal/server/api.go -o internal/server/docs` to regenerate.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Retrace API",
        "description": "API for browsing recorded AI assistant sessions from Claude Code and Codex CLI.",
        "version": "1.0"
    },
    "host": "localhost:8484",
    "basePath": "/api/v1",
    "paths": {
        "/sources": {
            "get": {
                "description": "Returns the configured session sources and whether each base directory exists",
                "produces": ["application/json"],
                "tags": ["sources"],
                "summary": "List sources",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/SourcesResponse"
                        }
                    }
                }
            }
        },
        "/projects": {
            "get": {
                "description": "Returns all projects with recorded sessions, sorted by last activity",
                "produces": ["application/json"],
                "tags": ["projects"],
                "summary": "List projects",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Only list projects from this source (claude, codex)",
                        "name": "source",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ProjectsResponse"
                        }
                    },
                    "404": {
                        "description": "Unknown source",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    }
                }
            }
        },
        "/projects/{projectID}/sessions": {
            "get": {
                "description": "Returns session metadata for a project, newest first",
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "List sessions for a project",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Project ID (percent-encoded)",
                        "name": "projectID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Only list sessions from this source",
                        "name": "source",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/SessionsResponse"
                        }
                    },
                    "404": {
                        "description": "Unknown source",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    }
                }
            }
        },
        "/sessions/{source}/{projectID}/{sessionID}": {
            "get": {
                "description": "Returns session metadata plus a window of parsed events. Pass grouped=true to also receive collapsed tool-run display items for the window.",
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Get a session",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Source name (claude, codex)",
                        "name": "source",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Project ID (percent-encoded)",
                        "name": "projectID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Session ID",
                        "name": "sessionID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "Skip this many events",
                        "name": "offset",
                        "in": "query"
                    },
                    {
                        "type": "integer",
                        "description": "Maximum events to return (0 = all)",
                        "name": "limit",
                        "in": "query"
                    },
                    {
                        "type": "boolean",
                        "description": "Include grouped display items",
                        "name": "grouped",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/SessionResponse"
                        }
                    },
                    "404": {
                        "description": "Unknown source or session",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    }
                }
            }
        },
        "/sessions/{source}/{projectID}/{sessionID}/export": {
            "get": {
                "description": "Renders the session as markdown, JSON, or plain text and returns it as a file download",
                "produces": ["application/octet-stream"],
                "tags": ["sessions"],
                "summary": "Export a session",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Source name (claude, codex)",
                        "name": "source",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Project ID (percent-encoded)",
                        "name": "projectID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Session ID",
                        "name": "sessionID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Export format: markdown, json, plain",
                        "name": "format",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Exported file"
                    },
                    "400": {
                        "description": "Invalid format",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Unknown source or session",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    }
                }
            }
        },
        "/sessions/{source}/{projectID}/{sessionID}/live": {
            "get": {
                "description": "Upgrades to a WebSocket, sends every existing event as a JSON text message, then watches the session file and streams events appended while the assistant is still running.",
                "tags": ["sessions"],
                "summary": "Follow a session live",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Source name (claude, codex)",
                        "name": "source",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Project ID (percent-encoded)",
                        "name": "projectID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Session ID",
                        "name": "sessionID",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "101": {
                        "description": "Switching protocols"
                    },
                    "404": {
                        "description": "Unknown source or session",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    }
                }
            }
        },
        "/search": {
            "get": {
                "description": "Searches the indexed catalog for sessions whose text matches the query. Requires the catalog built by the index command.",
                "produces": ["application/json"],
                "tags": ["search"],
                "summary": "Search sessions",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Search query",
                        "name": "q",
                        "in": "query",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Substring filter on project name",
                        "name": "project",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Restrict to one source",
                        "name": "source",
                        "in": "query"
                    },
                    {
                        "type": "integer",
                        "description": "Maximum sessions to return (default 50)",
                        "name": "limit",
                        "in": "query"
                    },
                    {
                        "type": "integer",
                        "description": "Maximum matches per session (default 2)",
                        "name": "per_session",
                        "in": "query"
                    },
                    {
                        "type": "boolean",
                        "description": "Treat the query as a regular expression",
                        "name": "regex",
                        "in": "query"
                    },
                    {
                        "type": "boolean",
                        "description": "Match case-sensitively",
                        "name": "case_sensitive",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/SearchResponse"
                        }
                    },
                    "400": {
                        "description": "Missing query",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Search catalog has not been built",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    }
                }
            }
        },
        "/bookmarks": {
            "get": {
                "description": "Returns saved bookmarks, newest first. Filter to one session with source and session parameters.",
                "produces": ["application/json"],
                "tags": ["bookmarks"],
                "summary": "List bookmarks",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Source of the session filter",
                        "name": "source",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Only bookmarks for this session ID",
                        "name": "session",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/BookmarksResponse"
                        }
                    }
                }
            },
            "post": {
                "description": "Saves a bookmark for one event in a session. Re-posting the same source/session/event updates the existing bookmark.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["bookmarks"],
                "summary": "Create a bookmark",
                "parameters": [
                    {
                        "description": "Bookmark to save",
                        "name": "bookmark",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/Bookmark"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/Bookmark"
                        }
                    },
                    "400": {
                        "description": "Invalid bookmark",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Bookmark store unavailable",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    }
                }
            }
        },
        "/bookmarks/{bookmarkID}": {
            "patch": {
                "description": "Sets the free-form note on an existing bookmark",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["bookmarks"],
                "summary": "Update a bookmark note",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Bookmark ID",
                        "name": "bookmarkID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "New note text",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object",
                            "properties": {
                                "note": {"type": "string"}
                            }
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/Bookmark"
                        }
                    },
                    "404": {
                        "description": "Bookmark not found",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    }
                }
            },
            "delete": {
                "description": "Removes a bookmark. Deleting an unknown ID succeeds.",
                "tags": ["bookmarks"],
                "summary": "Delete a bookmark",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Bookmark ID",
                        "name": "bookmarkID",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "204": {
                        "description": "Deleted"
                    },
                    "503": {
                        "description": "Bookmark store unavailable",
                        "schema": {
                            "$ref": "#/definitions/ErrorResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "SourcesResponse": {
            "type": "object",
            "properties": {
                "sources": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/SourceInfo"}
                }
            }
        },
        "SourceInfo": {
            "type": "object",
            "properties": {
                "source": {"type": "string"},
                "available": {"type": "boolean"},
                "base_path": {"type": "string"}
            }
        },
        "ProjectsResponse": {
            "type": "object",
            "properties": {
                "projects": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/Project"}
                }
            }
        },
        "Project": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "path": {"type": "string"},
                "display_path": {"type": "string"},
                "session_count": {"type": "integer"},
                "last_modified": {"type": "string", "format": "date-time"},
                "source": {"type": "string"},
                "path_exists": {"type": "boolean"}
            }
        },
        "SessionsResponse": {
            "type": "object",
            "properties": {
                "sessions": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/SessionMeta"}
                }
            }
        },
        "SessionMeta": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "project_path": {"type": "string"},
                "full_path": {"type": "string"},
                "first_prompt": {"type": "string"},
                "summary": {"type": "string"},
                "event_count": {"type": "integer"},
                "created_at": {"type": "string", "format": "date-time"},
                "modified_at": {"type": "string", "format": "date-time"},
                "git_branch": {"type": "string"},
                "model": {"type": "string"},
                "source": {"type": "string"},
                "file_size": {"type": "integer"}
            }
        },
        "SessionResponse": {
            "type": "object",
            "properties": {
                "meta": {"$ref": "#/definitions/SessionMeta"},
                "events": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/Event"}
                },
                "items": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/DisplayItem"}
                },
                "total": {"type": "integer"},
                "has_more": {"type": "boolean"}
            }
        },
        "Event": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "kind": {"type": "string"},
                "timestamp": {"type": "string", "format": "date-time"},
                "content": {"type": "string"},
                "tool_name": {"type": "string"},
                "tool_input": {"type": "object"},
                "tool_use_id": {"type": "string"},
                "is_error": {"type": "boolean"},
                "files_affected": {
                    "type": "array",
                    "items": {"type": "string"}
                },
                "model": {"type": "string"},
                "usage": {"$ref": "#/definitions/TokenUsage"}
            }
        },
        "TokenUsage": {
            "type": "object",
            "properties": {
                "input_tokens": {"type": "integer"},
                "output_tokens": {"type": "integer"},
                "cache_creation_input_tokens": {"type": "integer"},
                "cache_read_input_tokens": {"type": "integer"}
            }
        },
        "DisplayItem": {
            "type": "object",
            "properties": {
                "key": {"type": "string"},
                "kind": {"type": "string"},
                "tool_name": {"type": "string"},
                "count": {"type": "integer"},
                "event_ids": {
                    "type": "array",
                    "items": {"type": "string"}
                },
                "grouped": {"type": "boolean"}
            }
        },
        "SearchResponse": {
            "type": "object",
            "properties": {
                "query": {"type": "string"},
                "results": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/SessionResult"}
                },
                "total": {"type": "integer"}
            }
        },
        "SessionResult": {
            "type": "object",
            "properties": {
                "session_id": {"type": "string"},
                "project_name": {"type": "string"},
                "source": {"type": "string"},
                "path": {"type": "string"},
                "matches": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/Match"}
                }
            }
        },
        "Match": {
            "type": "object",
            "properties": {
                "line_num": {"type": "integer"},
                "kind": {"type": "string"},
                "preview": {"type": "string"},
                "match_start": {"type": "integer"},
                "match_end": {"type": "integer"}
            }
        },
        "BookmarksResponse": {
            "type": "object",
            "properties": {
                "bookmarks": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/Bookmark"}
                }
            }
        },
        "Bookmark": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "source": {"type": "string"},
                "project_id": {"type": "string"},
                "session_id": {"type": "string"},
                "event_id": {"type": "string"},
                "kind": {"type": "string"},
                "preview": {"type": "string"},
                "note": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "message": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8484",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Retrace API",
	Description:      "API for browsing recorded AI assistant sessions from Claude Code and Codex CLI.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
