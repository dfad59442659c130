package exchange

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/sergey-gru/go-cml/pkg/cml"
	"github.com/sergey-gru/go-cml/pkg/compression"
)

// Protocol response prefixes. Every exchange reply is a plain-text body
// whose first line is one of these.
const (
	StatusSuccess  = "success"
	StatusProgress = "progress"
	StatusFailure  = "failure"
)

const internalErrorText = "Internal server error. See logs for details."

// Config tunes the exchange handler.
type Config struct {
	// UploadRoot is the directory uploaded files land in. It is created
	// at handler construction.
	UploadRoot string

	// DeleteFilesAfterImport removes the upload root once an import step
	// completes, so stale files never leak into the next exchange.
	DeleteFilesAfterImport bool

	// UseZip advertises zip support in the init reply. When on, an
	// uploaded *.zip archive is unpacked into the upload root instead of
	// being stored as is.
	UseZip bool

	// FileLimit is the advertised per-request upload limit in bytes;
	// zero means unlimited.
	FileLimit int

	// SessionCookie is the cookie name echoed by checkauth. Defaults to
	// "sessid".
	SessionCookie string
}

// Handler serves the exchange endpoint. It dispatches on the type and
// mode query parameters and drives one Session per request.
type Handler struct {
	cfg      Config
	store    Store
	delegate Delegate
	log      *slog.Logger

	routes map[routeKey]routeFunc
}

type routeKey struct {
	Type string
	Mode string
}

// result is a step's reply to the client: either a protocol status line
// or, for query, a raw XML body.
type result struct {
	contentType string
	body        []byte
}

func statusResult(status, detail string) *result {
	body := status + "\n"
	if detail != "" {
		body += detail + "\n"
	}
	return &result{contentType: "text/plain; charset=utf-8", body: []byte(body)}
}

// routeFunc runs one protocol step inside an open session. A returned
// error aborts the session; a failure result reports a recoverable
// client mistake and leaves the session open. The logger carries the
// request's type/mode/user/session attributes.
type routeFunc func(ctx context.Context, log *slog.Logger, sess *Session, r *http.Request) (*result, error)

// NewHandler builds the exchange handler and ensures the upload root
// exists. A missing root that cannot be created is a deployment error.
func NewHandler(cfg Config, store Store, delegate Delegate, log *slog.Logger) (*Handler, error) {
	if cfg.SessionCookie == "" {
		cfg.SessionCookie = "sessid"
	}
	if err := os.MkdirAll(cfg.UploadRoot, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload root %s: %w", cfg.UploadRoot, err)
	}
	h := &Handler{cfg: cfg, store: store, delegate: delegate, log: log}
	h.routes = map[routeKey]routeFunc{
		{"catalog", "checkauth"}: nil, // handled without a session
		{"catalog", "init"}:      h.stepInit,
		{"catalog", "file"}:      h.stepFile,
		{"catalog", "import"}:    h.stepImport,
		// 1C issues the import confirmation under type=import as well.
		{"import", "import"}: h.stepImport,

		{"sale", "checkauth"}: nil,
		{"sale", "init"}:      h.stepInit,
		{"sale", "file"}:      h.stepFile,
		{"sale", "query"}:     h.stepQuery,
		{"sale", "success"}:   h.stepSuccess,
	}
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	typ := r.URL.Query().Get("type")
	mode := r.URL.Query().Get("mode")
	log := h.log.With(slog.String("type", typ), slog.String("mode", mode))

	step, ok := h.routes[routeKey{typ, mode}]
	if !ok {
		log.Warn("unknown exchange operation")
		h.write(w, statusResult(StatusFailure, fmt.Sprintf("Unknown operation type=%s mode=%s", typ, mode)))
		return
	}

	if mode == "checkauth" {
		h.write(w, h.stepCheckAuth(r))
		return
	}

	user, ok := UserFrom(r.Context())
	if !ok {
		log.Error("no authenticated user on request context")
		h.write(w, statusResult(StatusFailure, internalErrorText))
		return
	}
	log = log.With(slog.String("user", user))
	log.Info("exchange step")

	h.runStep(w, r, log, user, typ, mode, step)
}

// runStep opens or resumes the session, executes the step and flushes the
// session exactly once, clean or not.
func (h *Handler) runStep(w http.ResponseWriter, r *http.Request, log *slog.Logger, user, typ, mode string, step routeFunc) {
	ctx := r.Context()

	var sess *Session
	var err error
	// init and query both start a fresh session, evicting anything stale.
	if mode == "init" || mode == "query" {
		sess, err = OpenNew(ctx, h.store, user, log)
	} else {
		sess, err = Resume(ctx, h.store, user, log)
	}
	if err != nil {
		if errors.Is(err, ErrNotStarted) {
			h.write(w, statusResult(StatusFailure, "Session has not been started. Try to make init request."))
			return
		}
		log.Error("opening exchange session", slog.String("error", err.Error()))
		h.write(w, statusResult(StatusFailure, internalErrorText))
		return
	}
	log = log.With(slog.String("session_id", sess.Record().ID))

	if err := sess.SetOperation(ctx, typ+"_"+mode, r.URL.Query().Get("filename")); err != nil {
		log.Error("recording operation", slog.String("error", err.Error()))
		h.write(w, statusResult(StatusFailure, internalErrorText))
		return
	}

	res, stepErr := step(ctx, log, sess, r)

	finErr := sess.Finish(ctx, stepErr, func() (string, error) {
		return h.delegate.Report(ctx)
	})

	if stepErr != nil {
		log.Error("exchange step aborted", slog.String("error", stepErr.Error()))
		h.write(w, statusResult(StatusFailure, internalErrorText))
		return
	}
	if finErr != nil {
		log.Error("flushing exchange session", slog.String("error", finErr.Error()))
		h.write(w, statusResult(StatusFailure, internalErrorText))
		return
	}
	h.write(w, res)
}

// stepCheckAuth issues the session cookie the 1C client replays on later
// requests. Transport auth already happened; this only hands back a
// token, echoing the client's cookie when it already carries one.
func (h *Handler) stepCheckAuth(r *http.Request) *result {
	token := uuid.NewString()
	if c, err := r.Cookie(h.cfg.SessionCookie); err == nil && c.Value != "" {
		token = c.Value
	}
	return statusResult(StatusSuccess, h.cfg.SessionCookie+"\n"+token)
}

// stepInit reports the transport parameters for the upload phase. The
// reply is the raw key=value body the protocol prescribes, not a status
// line.
func (h *Handler) stepInit(context.Context, *slog.Logger, *Session, *http.Request) (*result, error) {
	zip := "no"
	if h.cfg.UseZip {
		zip = "yes"
	}
	body := fmt.Sprintf("zip=%s\nfile_limit=%d\n", zip, h.cfg.FileLimit)
	return &result{contentType: "text/plain; charset=utf-8", body: []byte(body)}, nil
}

// stepFile receives one uploaded file into the upload root.
func (h *Handler) stepFile(ctx context.Context, log *slog.Logger, sess *Session, r *http.Request) (*result, error) {
	if r.Method != http.MethodPost {
		return statusResult(StatusFailure, "File content expected in a POST request body"), nil
	}
	name := r.URL.Query().Get("filename")
	if name == "" {
		return statusResult(StatusFailure, "Missing required parameter: filename"), nil
	}
	ref, err := cml.NewFileRef(name)
	if err != nil {
		return statusResult(StatusFailure, "Bad filename: "+err.Error()), nil
	}

	if h.cfg.UseZip && ref.IsZip() {
		return h.receiveArchive(log, sess, r, ref)
	}

	full := ref.FullPath(h.cfg.UploadRoot)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		log.Error("creating upload directory", slog.String("error", err.Error()))
		return statusResult(StatusFailure, "Cannot write to buffer file"), nil
	}
	f, err := os.Create(full)
	if err != nil {
		log.Error("creating buffer file", slog.String("error", err.Error()))
		return statusResult(StatusFailure, "Cannot write to buffer file"), nil
	}
	_, err = io.Copy(f, r.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Error("writing buffer file", slog.String("error", err.Error()))
		return statusResult(StatusFailure, "Cannot write to buffer file"), nil
	}

	countUpload(sess, ref)

	// Under type=sale this upload is 1C pushing order status updates back
	// to the site.
	if r.URL.Query().Get("type") == "sale" {
		log.Info("order status file received", slog.String("file", ref.Path))
	}
	return statusResult(StatusSuccess, ""), nil
}

// receiveArchive unpacks a zipped upload into the upload root. Each
// extracted file counts as an upload of its own.
func (h *Handler) receiveArchive(log *slog.Logger, sess *Session, r *http.Request, ref *cml.FileRef) (*result, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("reading archive body", slog.String("error", err.Error()))
		return statusResult(StatusFailure, "Cannot write to buffer file"), nil
	}
	refs, err := compression.Unzip(data, h.cfg.UploadRoot)
	if err != nil {
		log.Error("unpacking archive", slog.String("file", ref.Path), slog.String("error", err.Error()))
		return statusResult(StatusFailure, "Cannot unpack archive: "+ref.Path), nil
	}
	for _, rf := range refs {
		countUpload(sess, rf)
	}
	log.Info("archive unpacked", slog.String("file", ref.Path), slog.Int("files", len(refs)))
	return statusResult(StatusSuccess, ""), nil
}

func countUpload(sess *Session, ref *cml.FileRef) {
	sess.Counters.Uploaded++
	switch {
	case ref.IsXML():
		sess.Counters.UploadedXML++
	case ref.IsImage():
		sess.Counters.UploadedImages++
	}
}

// stepImport parses a previously uploaded message and feeds its sections
// to the delegate, then completes the session.
func (h *Handler) stepImport(ctx context.Context, log *slog.Logger, sess *Session, r *http.Request) (*result, error) {
	name := r.URL.Query().Get("filename")
	if name == "" {
		return statusResult(StatusFailure, "Missing required parameter: filename"), nil
	}
	ref, err := cml.NewFileRef(name)
	if err != nil {
		return statusResult(StatusFailure, "Bad filename: "+err.Error()), nil
	}
	full := ref.FullPath(h.cfg.UploadRoot)
	if ref.State(h.cfg.UploadRoot) != cml.FileUpdated {
		return statusResult(StatusFailure, "File not found: "+ref.Path), nil
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ref.Path, err)
	}
	pack, err := cml.ParsePacket(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ref.Path, err)
	}
	if pack.Version != cml.SchemaVersion {
		log.Warn("unexpected schema version, importing best effort",
			slog.String("got", pack.Version),
			slog.String("want", cml.SchemaVersion))
	}

	if pack.Classifier != nil {
		if err := h.delegate.ImportClassifier(ctx, pack.Classifier); err != nil {
			return nil, fmt.Errorf("importing classifier: %w", err)
		}
		sess.Counters.ImportedClassifiers++
	}
	if pack.Catalogue != nil {
		if err := h.delegate.ImportCatalogue(ctx, pack.Catalogue); err != nil {
			return nil, fmt.Errorf("importing catalogue: %w", err)
		}
		sess.Counters.ImportedCatalogues++
	}
	if pack.Offers != nil {
		if err := h.delegate.ImportOffers(ctx, pack.Offers); err != nil {
			return nil, fmt.Errorf("importing offers pack: %w", err)
		}
		sess.Counters.ImportedOfferPacks++
	}
	for _, doc := range pack.Documents {
		if err := h.delegate.ImportDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("importing document %s: %w", doc.ID, err)
		}
		sess.Counters.ImportedDocuments++
	}

	if h.cfg.DeleteFilesAfterImport {
		if err := os.RemoveAll(h.cfg.UploadRoot); err != nil {
			log.Warn("cleaning upload root", slog.String("error", err.Error()))
		}
	}

	sess.MarkDone()
	return statusResult(StatusSuccess, ""), nil
}

// stepQuery exports accumulated orders as a CommerceML message. The
// session stays open; 1C confirms receipt with a success request.
func (h *Handler) stepQuery(ctx context.Context, log *slog.Logger, sess *Session, r *http.Request) (*result, error) {
	docs, err := h.delegate.ExportOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting orders: %w", err)
	}

	pack := cml.NewPacket()
	pack.Documents = docs
	body, err := pack.Compose()
	if err != nil {
		return nil, fmt.Errorf("composing export message: %w", err)
	}
	sess.Counters.ExportedDocuments++

	log.Info("orders exported", slog.Int("documents", len(docs)))
	return &result{contentType: "text/xml; charset=utf-8", body: body}, nil
}

// stepSuccess is 1C acknowledging the exported orders; the session
// completes.
func (h *Handler) stepSuccess(ctx context.Context, log *slog.Logger, sess *Session, r *http.Request) (*result, error) {
	sess.MarkDone()
	return statusResult(StatusSuccess, ""), nil
}

func (h *Handler) write(w http.ResponseWriter, res *result) {
	w.Header().Set("Content-Type", res.contentType)
	if _, err := w.Write(res.body); err != nil {
		h.log.Error("writing response", slog.String("error", err.Error()))
	}
}
