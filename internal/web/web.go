package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"blockerday/internal/config"
	"blockerday/internal/ics"
	appLog "blockerday/internal/log"
	"blockerday/internal/model"
	"blockerday/internal/schedule"
)

// Server serves the busy-block feed, its JSON preview and a health check.
// It holds no mutable state: every request generates its calendar afresh.
type Server struct {
	cfg *config.Config
	gen *schedule.Generator
	mux *http.ServeMux
}

// NewServer constructs a new Server. A nil gen uses the wall clock.
func NewServer(cfg *config.Config, gen *schedule.Generator) *Server {
	if gen == nil {
		gen = schedule.New(nil)
	}
	s := &Server{
		cfg: cfg,
		gen: gen,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the routes wrapped with request ids, access logging and
// the GET/HEAD method guard.
func (s *Server) Handler() http.Handler {
	return requestID(accessLog(allowReadOnly(s.mux)))
}

// ListenAndServe serves handler on addr until ctx is cancelled, then shuts
// the server down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/{$}", s.handleRedirect)
	s.mux.HandleFunc("/index.html", s.handleRedirect)
	s.mux.HandleFunc("/calendar", s.handleCalendar)
	s.mux.HandleFunc("/calendar.ics", s.handleCalendar)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/", handleNotFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.cfg.Redirect, http.StatusFound)
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, "Not found", http.StatusNotFound)
}

// handleCalendar renders the feed for the request's parameters.
//
// GET /calendar.ics?days=7&hours=2&probability=0.3&seed=team
//   - seed is honoured only when seed_via_url is enabled
//   - unparseable values are ignored; parsed ones are clamped
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	gc := s.cfg.Resolve(r.URL.Query())
	cal := s.gen.Generate(gc)

	// Render fully before writing headers so an encoder failure is a 500.
	var buf bytes.Buffer
	if err := ics.Write(&buf, cal); err != nil {
		appLog.Error("render calendar failed", err, "request_id", RequestID(r.Context()))
		http.Error(w, "failed to render calendar", http.StatusInternalServerError)
		return
	}

	appLog.Debug("calendar generated",
		"request_id", RequestID(r.Context()),
		"today", cal.Today.Format(model.DateLayout),
		"days", gc.TotalDays,
		"hours", gc.BlockHours,
		"probability", gc.BlockProbability,
		"events", len(cal.Events),
	)

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", contentDisposition(gc.SeedSalt+".ics"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// contentDisposition names the attachment with a quoted filename, falling
// back to the RFC 2231 form when the name is not printable ASCII.
func contentDisposition(filename string) string {
	for i := 0; i < len(filename); i++ {
		if c := filename[i]; c < 0x20 || c > 0x7e {
			if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
				return v
			}
			return "attachment"
		}
	}
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(filename)
	return `attachment; filename="` + escaped + `"`
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Calendar    string     `json:"calendar"`
	Timezone    string     `json:"timezone"`
	Namespace   string     `json:"namespace"`
	Days        int        `json:"days"`
	Hours       float64    `json:"hours"`
	Probability float64    `json:"probability"`
	RangeStart  string     `json:"range_start"`
	RangeEnd    string     `json:"range_end"`
	Today       string     `json:"today"`
	BusyBlocks  int        `json:"busy_blocks"`
	TotalBlocks int        `json:"total_blocks"`
	Events      []eventDTO `json:"events"`
}

// eventDTO is a JSON-friendly view of one busy block. Start and End are
// wall-clock times in the calendar timezone; the UTC fields are only set
// for zones with fixed rules.
type eventDTO struct {
	UID      string     `json:"uid"`
	Date     string     `json:"date"`
	Block    int        `json:"block"`
	Start    string     `json:"start"`
	End      string     `json:"end"`
	Zone     string     `json:"zone,omitempty"`
	StartUTC *time.Time `json:"start_utc,omitempty"`
	EndUTC   *time.Time `json:"end_utc,omitempty"`
}

const localLayout = "2006-01-02T15:04"

// handleEvents previews the schedule the feed would contain for the same
// query parameters.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	gc := s.cfg.Resolve(r.URL.Query())
	cal := s.gen.Generate(gc)

	resp := eventsResponse{
		Calendar:    gc.CalendarName,
		Timezone:    gc.Timezone,
		Namespace:   cal.Namespace,
		Days:        gc.TotalDays,
		Hours:       cal.Config.BlockHours,
		Probability: gc.BlockProbability,
		Today:       cal.Today.Format(model.DateLayout),
		BusyBlocks:  cal.BusyCount(),
		Events:      make([]eventDTO, 0, len(cal.Events)),
	}
	if n := len(cal.Days); n > 0 {
		resp.RangeStart = cal.Days[0].Key()
		resp.RangeEnd = cal.Days[n-1].Key()
		resp.TotalBlocks = n * len(cal.Days[0].Blocks)
	}

	zone, fixed := ics.LookupFixedZone(gc.Timezone)
	for _, ev := range cal.Events {
		dto := eventDTO{
			UID:   ev.UID,
			Date:  ev.Date.Format(model.DateLayout),
			Block: ev.Block.Index,
			Start: ev.Start.Format(localLayout),
			End:   ev.End.Format(localLayout),
		}
		if fixed {
			start, name, err := zone.UTC(ev.Start)
			if err != nil {
				appLog.Error("api events: offset lookup failed", err, "uid", ev.UID)
				writeError(w, http.StatusInternalServerError, "failed to resolve timezone")
				return
			}
			end, _, err := zone.UTC(ev.End)
			if err != nil {
				appLog.Error("api events: offset lookup failed", err, "uid", ev.UID)
				writeError(w, http.StatusInternalServerError, "failed to resolve timezone")
				return
			}
			dto.Zone = name
			dto.StartUTC = &start
			dto.EndUTC = &end
		}
		resp.Events = append(resp.Events, dto)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
