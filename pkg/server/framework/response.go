package framework

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Respond converts a Go value to JSON and sends it to the client.
func Respond(c *gin.Context, data any, statusCode int) {
	// if there's no payload to marshal, set the status code of the response and return
	if statusCode == http.StatusNoContent || data == nil {
		c.Status(statusCode)
		return
	}

	// respond with pretty JSON
	c.IndentedJSON(statusCode, data)
}

// RespondError sends an error response back to the client. If the error is a
// SafeError, the error message and fields are sent back as is. Any other error
// is masked with a generic 500 because its message may contain sensitive data.
func RespondError(c *gin.Context, err error) {
	var safeErr *SafeError
	if errors.As(errors.Cause(err), &safeErr) {
		Respond(c, ErrorResponse{Error: safeErr.Err.Error(), Fields: safeErr.Fields}, safeErr.StatusCode)
		return
	}
	Respond(c, ErrorResponse{Error: http.StatusText(http.StatusInternalServerError)}, http.StatusInternalServerError)
}

// LoggingRespondError logs the error before responding with it.
func LoggingRespondError(c *gin.Context, err error, statusCode int) {
	logrus.WithError(err).Error()
	RespondError(c, NewRequestError(err, statusCode))
}

// LoggingRespondErrMsg logs and responds with a new error from the given message.
func LoggingRespondErrMsg(c *gin.Context, errMsg string, statusCode int) {
	logrus.Error(errMsg)
	RespondError(c, NewRequestErrorMsg(errMsg, statusCode))
}

// LoggingRespondErrWithMsg wraps the error with additional context before
// logging and responding with it.
func LoggingRespondErrWithMsg(c *gin.Context, err error, errMsg string, statusCode int) {
	logrus.WithError(err).Error(errMsg)
	RespondError(c, NewRequestErrorWithMsg(err, errMsg, statusCode))
}
