package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"context"
	"encoding/json"
	"sync"
	"unsafe"

	stressdb "github.com/nickyhof/stressdb"
	"github.com/nickyhof/stressdb/core"
	"github.com/nickyhof/stressdb/db"
	"github.com/nickyhof/stressdb/internal/config"
	"github.com/nickyhof/stressdb/internal/logging"
	"github.com/nickyhof/stressdb/load"
)

var bindingIdentity = core.Identity{
	Name:  "stressdb Python",
	Email: "python@stressdb.local",
}

// Handle is an open instance with one lookup session. Calls on the same
// handle are serialized because a session is not safe for concurrent use.
type Handle struct {
	mu       sync.Mutex
	instance *stressdb.Instance
	engine   *db.Engine
	session  *db.Session
}

var (
	handlesMu  sync.Mutex
	handles    = make(map[int]*Handle)
	nextHandle = 1
)

// Response mirrors the server protocol for consistency
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Type    string          `json:"type,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

type QueryResponse struct {
	Statement   string     `json:"statement"`
	Status      string     `json:"status,omitempty"`
	Columns     []string   `json:"columns"`
	Data        [][]string `json:"data"`
	RecordsRead int        `json:"records_read"`
	TimeMs      float64    `json:"time_ms"`
}

type SessionResponse struct {
	Statement  string            `json:"statement"`
	Variant    string            `json:"variant"`
	Selection  map[string]string `json:"selection"`
	Candidates int               `json:"candidates"`
	TimeMs     float64           `json:"time_ms"`
}

// openHandle opens an instance from a config file, or from the defaults
// with an in-memory store when path is empty.
func openHandle(path string) (int, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return 0, err
		}
		cfg = loaded
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return 0, err
	}
	instance, err := stressdb.Open(cfg, logger)
	if err != nil {
		return 0, err
	}

	handlesMu.Lock()
	defer handlesMu.Unlock()
	handle := nextHandle
	nextHandle++
	handles[handle] = &Handle{
		instance: instance,
		engine:   instance.Engine(),
		session:  instance.NewSession(),
	}
	return handle, nil
}

func lookupHandle(handle int) (*Handle, bool) {
	handlesMu.Lock()
	defer handlesMu.Unlock()
	h, ok := handles[handle]
	return h, ok
}

//export stressdb_open
func stressdb_open(configPath *C.char) C.int {
	handle, err := openHandle(C.GoString(configPath))
	if err != nil {
		return -1
	}
	return C.int(handle)
}

//export stressdb_close
func stressdb_close(handle C.int) {
	handlesMu.Lock()
	defer handlesMu.Unlock()
	delete(handles, int(handle))
}

//export stressdb_import_csv
func stressdb_import_csv(handle C.int, variant, tablePath, notesPath *C.char) *C.char {
	h, ok := lookupHandle(int(handle))
	if !ok {
		return makeErrorResponse("Invalid handle")
	}

	loader := &load.CSVLoader{
		TablePath: C.GoString(tablePath),
		NotesPath: C.GoString(notesPath),
		S3:        &h.instance.Config.S3,
	}
	txn, err := h.instance.Import(context.Background(), C.GoString(variant), loader, bindingIdentity)
	if err != nil {
		return makeErrorResponse(err.Error())
	}

	result := map[string]any{"changed": txn != nil}
	if txn != nil {
		result["transaction"] = txn.Id
	}
	return makeResponse("import", result)
}

//export stressdb_execute
func stressdb_execute(handle C.int, statement *C.char) *C.char {
	h, ok := lookupHandle(int(handle))
	if !ok {
		return makeErrorResponse("Invalid handle")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	result, err := h.engine.Execute(context.Background(), h.session, C.GoString(statement))
	if err != nil {
		return makeErrorResponse(err.Error())
	}

	switch r := result.(type) {
	case db.QueryResult:
		return makeResponse(r.Type().String(), QueryResponse{
			Statement:   r.Statement,
			Status:      r.Status,
			Columns:     r.Columns,
			Data:        r.Data,
			RecordsRead: r.RecordsRead,
			TimeMs:      r.ExecutionTimeSec * 1000,
		})
	case db.SessionResult:
		return makeResponse(r.Type().String(), SessionResponse{
			Statement:  r.Statement,
			Variant:    r.Variant,
			Selection:  r.Selection,
			Candidates: r.Candidates,
			TimeMs:     r.ExecutionTimeSec * 1000,
		})
	default:
		return makeResponse("unknown", nil)
	}
}

//export stressdb_free
func stressdb_free(ptr *C.char) {
	C.free(unsafe.Pointer(ptr))
}

func makeResponse(responseType string, result any) *C.char {
	resp := Response{Success: true, Type: responseType}
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return makeErrorResponse(err.Error())
		}
		resp.Result = data
	}
	jsonData, _ := json.Marshal(resp)
	return C.CString(string(jsonData))
}

func makeErrorResponse(msg string) *C.char {
	resp := Response{
		Success: false,
		Error:   msg,
	}
	jsonData, _ := json.Marshal(resp)
	return C.CString(string(jsonData))
}

func main() {}
