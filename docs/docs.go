// Package docs registers the OpenAPI document served under /swagger.
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
        "/load-data/": {
            "post": {
                "description": "Read a delimited sales report from a server-side path",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["data"],
                "summary": "Load data",
                "parameters": [
                    {
                        "description": "File to load",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/model.LoadDataRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.MessageResponse"}},
                    "400": {"description": "Unreadable or empty file", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "404": {"description": "File not found", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/process-data/": {
            "post": {
                "description": "Normalize, sanitize and derive total_amount for the loaded data",
                "produces": ["application/json"],
                "tags": ["data"],
                "summary": "Process data",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.MessageResponse"}},
                    "400": {"description": "Processing failed", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "409": {"description": "No data loaded", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/insights/daily-revenue": {
            "get": {
                "description": "Revenue per day excluding returned orders. At most one filter may be given.",
                "produces": ["application/json"],
                "tags": ["insights"],
                "summary": "Daily revenue",
                "parameters": [
                    {"type": "string", "description": "Ship state", "name": "ship_state", "in": "query"},
                    {"type": "string", "description": "Category", "name": "category", "in": "query"},
                    {"type": "string", "description": "SKU", "name": "sku", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.DailyRevenueResponse"}}},
                    "400": {"description": "Invalid filter", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "409": {"description": "No processed data", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/insights/top-skus": {
            "get": {
                "description": "SKUs ranked by monthly revenue, then by order count",
                "produces": ["application/json"],
                "tags": ["insights"],
                "summary": "Top SKUs",
                "parameters": [
                    {"type": "string", "description": "Month name, e.g. may", "name": "month", "in": "query", "required": true},
                    {"type": "integer", "default": 10, "description": "Number of SKUs (1-100)", "name": "top_n", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.TopSKUResponse"}}},
                    "400": {"description": "Invalid month or top_n", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "409": {"description": "No processed data", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/insights/asp-order-count": {
            "get": {
                "description": "Grouped by sku, by category, or by both when filter_by is omitted",
                "produces": ["application/json"],
                "tags": ["insights"],
                "summary": "Average selling price and order count",
                "parameters": [
                    {"enum": ["sku", "category"], "type": "string", "description": "sku or category", "name": "filter_by", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.ASPOrderCountResponse"}}},
                    "400": {"description": "Invalid filter_by", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "409": {"description": "No processed data", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/runs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "List runs",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.RunSummary"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/runs/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Get run",
                "parameters": [
                    {"type": "string", "description": "Run ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.RunSummary"}},
                    "404": {"description": "Run not found", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "model.LoadDataRequest": {
            "type": "object",
            "properties": {
                "path": {"type": "string"},
                "encoding": {"type": "string"}
            }
        },
        "model.MessageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "status_code": {"type": "integer"},
                "run_id": {"type": "string"},
                "rows": {"type": "integer"}
            }
        },
        "model.ErrorResponse": {
            "type": "object",
            "properties": {
                "detail": {"type": "string"}
            }
        },
        "model.DailyRevenueResponse": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "revenue_per_day": {"type": "string"},
                "ship_state": {"type": "string"},
                "category": {"type": "string"},
                "sku": {"type": "string"}
            }
        },
        "model.TopSKUResponse": {
            "type": "object",
            "properties": {
                "sku": {"type": "string"},
                "revenue_per_month": {"type": "string"},
                "order_count": {"type": "integer"},
                "month": {"type": "string"}
            }
        },
        "model.ASPOrderCountResponse": {
            "type": "object",
            "properties": {
                "sku": {"type": "string"},
                "category": {"type": "string"},
                "average_selling_price": {"type": "string"},
                "order_count": {"type": "integer"}
            }
        },
        "model.StageMetrics": {
            "type": "object",
            "properties": {
                "stage": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "duration": {"type": "integer"},
                "records_in": {"type": "integer"},
                "records_out": {"type": "integer"},
                "error": {"type": "string"}
            }
        },
        "model.RunSummary": {
            "type": "object",
            "properties": {
                "run_id": {"type": "string"},
                "source": {"type": "string"},
                "status": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "records_in": {"type": "integer"},
                "records_out": {"type": "integer"},
                "stages": {"type": "array", "items": {"$ref": "#/definitions/model.StageMetrics"}},
                "error": {"type": "string"}
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
	Title:            "Retail Insights API",
	Description:      "Load, process and query retail sales reports.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
