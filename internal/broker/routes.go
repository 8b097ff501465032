package broker

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/BioHazard786/Shroud/internal/utils"
)

const qrSize = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 * 1024,
	WriteBufferSize: 16 * 1024,

	// Terminal clients send no Origin; browsers may come from anywhere.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RouterOptions tunes the HTTP surface of the broker.
type RouterOptions struct {
	Version string
	Profile bool
	Logger  *slog.Logger
}

// NewRouter mounts the broker endpoints for hub.
func NewRouter(hub *Hub, opts RouterOptions) *httprouter.Router {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "http")

	mux := httprouter.New()
	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		log.Error("handler panic", "path", r.URL.Path, "panic", v)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}

	mux.GET("/ws", ServeWs(hub, log))
	mux.GET("/healthz", serveHealthCheck)
	mux.GET("/version", serveVersion(opts.Version))
	mux.GET("/qr/:id", serveQRCode(log))

	if opts.Profile {
		registerProfileHandlers(mux)
	}
	return mux
}

// ServeWs upgrades the request and starts the client pumps.
func ServeWs(hub *Hub, log *slog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", "remote", realIP(r), "error", err)
			return
		}

		client := NewClient(hub, conn, realIP(r))
		if !hub.connect(client) {
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}

func serveHealthCheck(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func serveVersion(version string) httprouter.Handle {
	return func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "shroud broker %s\n", version)
	}
}

// serveQRCode renders the join command for a peer ID as a PNG.
func serveQRCode(log *slog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		id := p.ByName("id")
		if !ValidPeerID(id) {
			http.Error(w, ReasonInvalidPeerID, http.StatusBadRequest)
			return
		}

		png, err := qrcode.Encode(utils.JoinCommand(id), qrcode.Medium, qrSize)
		if err != nil {
			log.Error("qr encode failed", "peer", id, "error", err)
			http.Error(w, "could not render qr code", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	}
}

func registerProfileHandlers(mux *httprouter.Router) {
	mux.Handler("GET", "/debug/pprof/allocs", pprof.Handler("allocs"))
	mux.Handler("GET", "/debug/pprof/block", pprof.Handler("block"))
	mux.Handler("GET", "/debug/pprof/goroutine", pprof.Handler("goroutine"))
	mux.Handler("GET", "/debug/pprof/heap", pprof.Handler("heap"))
	mux.Handler("GET", "/debug/pprof/mutex", pprof.Handler("mutex"))
	mux.HandlerFunc("GET", "/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandlerFunc("GET", "/debug/pprof/profile", pprof.Profile)
	mux.HandlerFunc("GET", "/debug/pprof/symbol", pprof.Symbol)
	mux.HandlerFunc("GET", "/debug/pprof/trace", pprof.Trace)
}

func realIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); net.ParseIP(ip) != nil {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
