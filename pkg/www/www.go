package www

import (
	"encoding/json"
	"net/http"

	"github.com/cyclopcam/logs"
	"github.com/julienschmidt/httprouter"
)

// errorBody is the JSON envelope for all error responses.
type errorBody struct {
	Error string `json:"error"`
}

// SendJSON encodes obj as JSON into the response body.
func SendJSON(w http.ResponseWriter, obj any) {
	w.Header().Set("Content-Type", "application/json")
	b, err := json.Marshal(obj)
	Check(err)
	w.Write(b)
}

// SendJSONError sends {"error": message} with the given status code.
func SendJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	b, _ := json.Marshal(&errorBody{Error: message})
	w.Write(b)
}

// RunProtected runs 'handle' inside a panic catcher. HTTPError panics become
// their corresponding status code, anything else becomes a 500. All error
// responses carry a JSON body.
func RunProtected(log logs.Log, w http.ResponseWriter, r *http.Request, handle func()) {
	defer func() {
		if rec := recover(); rec != nil {
			switch err := rec.(type) {
			case HTTPError:
				if err.Code >= 500 {
					log.Errorf("%v %v: %v %v", r.Method, r.URL.Path, err.Code, err.Message)
				}
				SendJSONError(w, err.Code, err.Message)
			case error:
				log.Errorf("%v %v: %v", r.Method, r.URL.Path, err)
				SendJSONError(w, http.StatusInternalServerError, err.Error())
			default:
				log.Errorf("%v %v: %v", r.Method, r.URL.Path, rec)
				SendJSONError(w, http.StatusInternalServerError, "Internal server error")
			}
		}
	}()
	handle()
}

// Handle registers a route on router, wrapping handle in RunProtected.
func Handle(log logs.Log, router *httprouter.Router, method, route string, handle httprouter.Handle) {
	router.Handle(method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		RunProtected(log, w, r, func() {
			handle(w, r, params)
		})
	})
}
