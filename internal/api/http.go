package api

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 10 << 20

// HTTPHandler serves handler over net/http by translating each request into
// an API Gateway proxy event and the response back
func HTTPHandler(handler Handler, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		request, err := ProxyRequest(r)
		if err != nil {
			writeResponse(w, ErrorResponse(http.StatusBadRequest, err.Error()))
			return
		}

		resp, err := handler(r.Context(), request)
		if err != nil {
			logger.WithError(err).Error("Handler returned an error")
			resp = ErrorResponse(http.StatusInternalServerError, err.Error())
		}

		writeResponse(w, resp)
	}
}

// UnavailableHandler answers every request with 503 and reason. It stands in
// for endpoints whose backing service is not configured.
func UnavailableHandler(reason string) Handler {
	return func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		if request.HTTPMethod == http.MethodOptions {
			return preflight(), nil
		}
		return ErrorResponse(http.StatusServiceUnavailable, reason), nil
	}
}

// ProxyRequest converts r to the event API Gateway would deliver
func ProxyRequest(r *http.Request) (events.APIGatewayProxyRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return events.APIGatewayProxyRequest{}, err
	}

	request := events.APIGatewayProxyRequest{
		HTTPMethod:                      r.Method,
		Path:                            r.URL.Path,
		Headers:                         map[string]string{},
		MultiValueHeaders:               map[string][]string{},
		QueryStringParameters:           map[string]string{},
		MultiValueQueryStringParameters: map[string][]string{},
	}

	for name, values := range r.Header {
		request.Headers[name] = strings.Join(values, ",")
		request.MultiValueHeaders[name] = values
	}
	for name, values := range r.URL.Query() {
		request.QueryStringParameters[name] = values[len(values)-1]
		request.MultiValueQueryStringParameters[name] = values
	}

	if utf8.Valid(body) {
		request.Body = string(body)
	} else {
		request.Body = base64.StdEncoding.EncodeToString(body)
		request.IsBase64Encoded = true
	}

	return request, nil
}

func writeResponse(w http.ResponseWriter, resp events.APIGatewayProxyResponse) {
	for name, value := range resp.Headers {
		w.Header().Set(name, value)
	}
	for name, values := range resp.MultiValueHeaders {
		for _, value := range values {
			w.Header().Add(name, value)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if resp.IsBase64Encoded {
		data, err := base64.StdEncoding.DecodeString(resp.Body)
		if err == nil {
			_, _ = w.Write(data)
			return
		}
	}
	_, _ = io.WriteString(w, resp.Body)
}
