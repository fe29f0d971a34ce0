package wrapper

// JSONResult carries an HTTP status code and the response body a usecase
// produced. Handlers emit Body verbatim so the wire contract stays with the
// usecase, not the transport.
type JSONResult struct {
	Code int         `json:"-"`
	Body interface{} `json:"-"`
}

func Response(httpCode int, body interface{}) JSONResult {
	return JSONResult{
		Code: httpCode,
		Body: body,
	}
}
