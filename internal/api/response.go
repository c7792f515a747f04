// Package api holds the API Gateway handlers behind the phone checker's endpoints.
package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Handler serves one API Gateway proxy request
type Handler func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// ErrorBody is the body of plain error responses
type ErrorBody struct {
	Error string `json:"error"`
}

// corsHeaders are sent on every response, preflight included
func corsHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token",
		"Access-Control-Allow-Methods": "GET,POST,OPTIONS",
		"Content-Type":                 "application/json",
	}
}

// JSONResponse encodes body with the CORS headers
func JSONResponse(statusCode int, body interface{}) events.APIGatewayProxyResponse {
	data, err := json.Marshal(body)
	if err != nil {
		statusCode = http.StatusInternalServerError
		data = []byte(`{"error":"failed to encode response"}`)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    corsHeaders(),
		Body:       string(data),
	}
}

// ErrorResponse returns {"error": message}
func ErrorResponse(statusCode int, message string) events.APIGatewayProxyResponse {
	return JSONResponse(statusCode, ErrorBody{Error: message})
}

// preflight answers OPTIONS requests
func preflight() events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    corsHeaders(),
		Body:       "",
	}
}

// allowMethod handles preflight and rejects methods other than method.
// It returns false together with the response to send when the request
// should not reach the handler.
func allowMethod(request events.APIGatewayProxyRequest, method string) (events.APIGatewayProxyResponse, bool) {
	switch request.HTTPMethod {
	case http.MethodOptions:
		return preflight(), false
	case method:
		return events.APIGatewayProxyResponse{}, true
	default:
		resp := ErrorResponse(http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", request.HTTPMethod))
		resp.Headers["Allow"] = method + ", " + http.MethodOptions
		return resp, false
	}
}

// requestBody returns the raw body, decoding it when API Gateway marked it base64
func requestBody(request events.APIGatewayProxyRequest) ([]byte, error) {
	if !request.IsBase64Encoded {
		return []byte(request.Body), nil
	}
	data, err := base64.StdEncoding.DecodeString(request.Body)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 body: %w", err)
	}
	return data, nil
}

// decodeBody unmarshals the request body into v. An empty body is accepted
// when allowEmpty is set and leaves v untouched.
func decodeBody(request events.APIGatewayProxyRequest, v interface{}, allowEmpty bool) error {
	data, err := requestBody(request)
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(data)) == "" {
		if allowEmpty {
			return nil
		}
		return fmt.Errorf("request body is empty")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
