package www

import (
	"fmt"
	"net/http"
	"strconv"
)

// HTTPError is an object that can be panic'ed, and the outer HTTP handler
// will turn it into the appropriate HTTP error response.
type HTTPError struct {
	Code    int
	Message string
}

func (e HTTPError) Error() string {
	return fmt.Sprintf("%v %v", e.Code, e.Message)
}

// PanicBadRequestf panics with a 400 Bad Request.
func PanicBadRequestf(format string, args ...interface{}) {
	panic(BadRequestf(format, args...))
}

func BadRequestf(format string, args ...interface{}) HTTPError {
	return HTTPError{http.StatusBadRequest, fmt.Sprintf(format, args...)}
}

// PanicUnauthorized panics with a 401 Unauthorized.
func PanicUnauthorized() {
	panic(Unauthorized())
}

func Unauthorized() HTTPError {
	return HTTPError{http.StatusUnauthorized, "unauthorized"}
}

// PanicNotFound panics with a 404 Not Found.
func PanicNotFound() {
	panic(NotFound())
}

func NotFound() HTTPError {
	return HTTPError{http.StatusNotFound, "Not Found"}
}

// PanicTooLargef panics with a 413 Request Entity Too Large.
func PanicTooLargef(format string, args ...interface{}) {
	panic(HTTPError{http.StatusRequestEntityTooLarge, fmt.Sprintf(format, args...)})
}

// Check causes a panic if err is not nil.
func Check(err error) {
	if err != nil {
		panic(err)
	}
}

// Returns the named form value (typically query value) as an int64, or zero if the item is missing or not parseable as an integer
func FormInt64(r *http.Request, key string) int64 {
	i, _ := strconv.ParseInt(r.FormValue(key), 10, 64)
	return i
}

// Returns the named form value (typically query value) as an int, or zero if the item is missing or not parseable as an integer
func FormInt(r *http.Request, key string) int {
	return int(FormInt64(r, key))
}
