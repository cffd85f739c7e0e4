// Package docs registers the dispatch API document with swag.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support",
            "url": "http://www.swagger.io/support",
            "email": "support@swagger.io"
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
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Health Check",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/rides": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Rides"],
                "summary": "Request a ride",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.CreateRideRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Passenger already has an active ride"},
                    "422": {"description": "Validation failed"}
                }
            }
        },
        "/rides/estimate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Rides"],
                "summary": "Fare estimate",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.EstimateRequest"}}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/rides/active": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Rides"],
                "summary": "Active ride of the caller",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/rides/nearby": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Rides"],
                "summary": "Pending rides near the driver",
                "parameters": [
                    {"type": "number", "name": "latitude", "in": "query"},
                    {"type": "number", "name": "longitude", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/rides/{ride_id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Rides"],
                "summary": "Get a ride",
                "parameters": [{"type": "string", "name": "ride_id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "No standing on this ride"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/rides/{ride_id}/claim": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Rides"],
                "summary": "Claim a pending ride",
                "parameters": [{"type": "string", "name": "ride_id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Already claimed or no longer available"},
                    "504": {"description": "Claim did not resolve in time"}
                }
            }
        },
        "/rides/{ride_id}/transition": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Rides"],
                "summary": "Move a ride to the next status",
                "parameters": [
                    {"type": "string", "name": "ride_id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Illegal transition"}
                }
            }
        },
        "/rides/{ride_id}/cancel": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Rides"],
                "summary": "Cancel a ride",
                "parameters": [
                    {"type": "string", "name": "ride_id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.CancelRideRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Illegal transition"}}
            }
        },
        "/rides/{ride_id}/rating": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Rides"],
                "summary": "Rate the other party of a completed ride",
                "parameters": [
                    {"type": "string", "name": "ride_id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.RatingRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Already rated or not completed"}}
            }
        },
        "/drivers/location": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Drivers"],
                "summary": "Report the driver's position",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.LocationUpdateRequest"}}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ws": {
            "get": {
                "tags": ["Websocket"],
                "summary": "Realtime connection",
                "description": "Authenticate with the Authorization header or a first {\"type\":\"auth\",\"token\":...} message.",
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        }
    },
    "definitions": {
        "dto.Location": {
            "type": "object",
            "properties": {
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "address": {"type": "string"}
            }
        },
        "dto.CreateRideRequest": {
            "type": "object",
            "properties": {
                "origin": {"$ref": "#/definitions/dto.Location"},
                "destination": {"$ref": "#/definitions/dto.Location"},
                "distance": {"type": "number"},
                "duration": {"type": "number"},
                "price": {"type": "number"},
                "payment_method": {"type": "string", "enum": ["CASH", "CARD", "WALLET"]}
            }
        },
        "dto.EstimateRequest": {
            "type": "object",
            "properties": {
                "origin": {"$ref": "#/definitions/dto.Location"},
                "destination": {"$ref": "#/definitions/dto.Location"}
            }
        },
        "dto.TransitionRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["ACCEPTED", "ARRIVED", "IN_PROGRESS", "COMPLETED", "CANCELLED"]},
                "reason": {"type": "string"}
            }
        },
        "dto.CancelRideRequest": {
            "type": "object",
            "properties": {"reason": {"type": "string"}}
        },
        "dto.RatingRequest": {
            "type": "object",
            "properties": {
                "score": {"type": "integer", "minimum": 1, "maximum": 5},
                "comment": {"type": "string"}
            }
        },
        "dto.LocationUpdateRequest": {
            "type": "object",
            "properties": {
                "latitude": {"type": "number"},
                "longitude": {"type": "number"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:3000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Ride Dispatch API",
	Description:      "Ride dispatch service: ride requests, first-claim-wins driver matching, the ride lifecycle and realtime notifications over WebSocket.",
	InfoInstanceName: "dispatch",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
