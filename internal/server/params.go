package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/wesm/flow/internal/analytics"
)

// maxBodyBytes bounds request bodies, including imports.
const maxBodyBytes = 16 << 20

var errBadPayload = errors.New("invalid request body")

// pathID parses the {id} path segment. Non-numeric ids cannot
// name an entity, so they answer 404 with notFound.
func pathID(
	w http.ResponseWriter, r *http.Request, notFound string,
) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, notFound)
		return 0, false
	}
	return id, true
}

// readBody reads and syntax-checks a JSON object body. An empty
// body yields "{}" when optional is true.
func readBody(r *http.Request, optional bool) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	if len(data) > maxBodyBytes {
		return nil, fmt.Errorf("%w: too large", errBadPayload)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		if optional {
			return []byte("{}"), nil
		}
		return nil, fmt.Errorf("%w: body required", errBadPayload)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", errBadPayload)
	}
	if !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("%w: expected a JSON object", errBadPayload)
	}
	return data, nil
}

// decodeBody reads the body into v. Type mismatches are
// reported as bad payloads.
func decodeBody(r *http.Request, v any, optional bool) error {
	data, err := readBody(r, optional)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return nil
}

// optField sets dst when key is present in body, including an
// explicit null.
func optField[T any](body []byte, key string, dst *analytics.Opt[T]) error {
	res := gjson.GetBytes(body, key)
	if !res.Exists() {
		return nil
	}
	var v T
	if err := json.Unmarshal([]byte(res.Raw), &v); err != nil {
		return fmt.Errorf("%w: field %q: %v", errBadPayload, key, err)
	}
	*dst = analytics.Some(v)
	return nil
}

// taskPatch builds a partial update from the keys present in a
// PUT body.
func taskPatch(body []byte) (analytics.TaskPatch, error) {
	var p analytics.TaskPatch
	err := errors.Join(
		optField(body, "title", &p.Title),
		optField(body, "completed", &p.Completed),
		optField(body, "due_date", &p.DueDate),
		optField(body, "due_time", &p.DueTime),
		optField(body, "duration", &p.Duration),
		optField(body, "priority", &p.Priority),
		optField(body, "postponed_count", &p.PostponedCount),
		optField(body, "subtasks", &p.Subtasks),
		optField(body, "tags", &p.Tags),
		optField(body, "description", &p.Description),
		optField(body, "repeat_frequency", &p.RepeatFrequency),
	)
	return p, err
}
