package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"time"

	"letterflow/internal/lifecycle"
	"letterflow/internal/repository"
	"letterflow/internal/service"
)

// JSONResponse sends a JSON response and ensures slices are never null.
//
// This solves a common Go/JSON issue where nil slices encode as "null"
// instead of "[]", which breaks frontends that expect arrays. Always use
// this instead of json.NewEncoder(w).Encode() directly.
func JSONResponse(w http.ResponseWriter, data interface{}) error {
	normalized := normalizeSlices(data)
	return json.NewEncoder(w).Encode(normalized)
}

// normalizeSlices recursively ensures all nil slices become empty slices
func normalizeSlices(data interface{}) interface{} {
	if data == nil {
		return data
	}

	v := reflect.ValueOf(data)

	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return data
		}
		elem := v.Elem()
		if elem.Type() == reflect.TypeOf(time.Time{}) {
			return data
		}
		normalized := normalizeSlices(elem.Interface())
		result := reflect.New(elem.Type())
		result.Elem().Set(reflect.ValueOf(normalized))
		return result.Interface()

	case reflect.Slice:
		if v.IsNil() {
			return reflect.MakeSlice(v.Type(), 0, 0).Interface()
		}
		result := reflect.MakeSlice(v.Type(), v.Len(), v.Cap())
		for i := 0; i < v.Len(); i++ {
			result.Index(i).Set(reflect.ValueOf(normalizeSlices(v.Index(i).Interface())))
		}
		return result.Interface()

	case reflect.Struct:
		if v.Type() == reflect.TypeOf(time.Time{}) {
			return data
		}
		result := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			field := v.Field(i)
			if !field.CanInterface() || !result.Field(i).CanSet() {
				continue
			}
			fieldType := field.Type()
			isTime := fieldType == reflect.TypeOf(time.Time{}) ||
				(fieldType.Kind() == reflect.Ptr && fieldType.Elem() == reflect.TypeOf(time.Time{}))
			if !isTime && (field.Kind() == reflect.Slice || field.Kind() == reflect.Ptr || field.Kind() == reflect.Struct) {
				result.Field(i).Set(reflect.ValueOf(normalizeSlices(field.Interface())))
			} else {
				result.Field(i).Set(field)
			}
		}
		return result.Interface()
	}

	return data
}

// Helper functions

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := JSONResponse(w, payload); err != nil {
		w.Write([]byte(`{"error":"Internal server error"}`))
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps domain error kinds onto HTTP status codes:
// unknown resources to 404, guard failures to 403, bad input to 400, and
// wrong-state or lost-race writes to 409.
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound), errors.Is(err, repository.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, lifecycle.ErrUnauthorized):
		respondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, lifecycle.ErrValidation), errors.Is(err, service.ErrInvalidUser):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, lifecycle.ErrConflict):
		// Lost races are worth a retry after re-reading; wrong-state is not.
		respondWithJSON(w, http.StatusConflict, map[string]interface{}{"error": err.Error(), "retryable": true})
	case errors.Is(err, lifecycle.ErrInvalidState):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrUserExists):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func getIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
