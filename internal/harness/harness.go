// Package harness serves the interactive frame-selection page and its
// websocket control channel. Each connection owns one FrameSelector; every
// selection change triggers a render and the result is pushed back over
// the socket.
package harness

import (
	"context"
	"embed"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/benstrumeyer/snowex-frame-service/internal/domain/entity"
	"github.com/benstrumeyer/snowex-frame-service/internal/infra/metrics"
	"github.com/benstrumeyer/snowex-frame-service/internal/selector"
)

//go:embed index.html
var staticFS embed.FS

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Renderer fetches a rendered frame for a selection-derived request.
type Renderer interface {
	Render(ctx context.Context, req selector.RenderRequest) (*entity.FramePayload, error)
}

type Handler struct {
	renderer      Renderer
	logger        *zap.Logger
	renderTimeout time.Duration
}

func NewHandler(renderer Renderer, logger *zap.Logger) *Handler {
	return &Handler{
		renderer:      renderer,
		logger:        logger,
		renderTimeout: 30 * time.Second,
	}
}

// Register wires the harness page and websocket endpoint onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		page, err := staticFS.ReadFile("index.html")
		if err != nil {
			http.Error(w, "harness page unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(page)
	})
	mux.HandleFunc("GET /ws", h.handleWebSocket)
}

// inboundMessage is one selector operation from the page.
type inboundMessage struct {
	Op    string `json:"op"`
	Value string `json:"value,omitempty"`
	Flag  bool   `json:"flag,omitempty"`
}

// outboundMessage carries the post-mutation selection state plus either
// the rendered frame or the render error.
type outboundMessage struct {
	State   stateView            `json:"state"`
	Payload *entity.FramePayload `json:"payload,omitempty"`
	Error   string               `json:"error,omitempty"`
}

type stateView struct {
	VideoID     string `json:"videoId"`
	FrameIndex  int    `json:"frameIndex"`
	ShowOverlay bool   `json:"showOverlay"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	metrics.HarnessConnections.Inc()
	defer metrics.HarnessConnections.Dec()

	log := h.logger.With(zap.String("remote", r.RemoteAddr))
	log.Info("harness connected")

	sel := selector.New()
	sel.OnChange(func(req selector.RenderRequest) {
		h.renderAndPush(r.Context(), conn, sel.State(), req, log)
	})

	// Render the defaults immediately so the page is never blank.
	h.renderAndPush(r.Context(), conn, sel.State(), sel.Request(), log)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn("invalid harness message", zap.Error(err), zap.ByteString("body", data))
			continue
		}

		switch msg.Op {
		case "setVideoId":
			sel.SetVideoID(msg.Value)
		case "setFrameIndex":
			sel.SetFrameIndex(msg.Value)
		case "incrementFrame":
			sel.IncrementFrame()
		case "decrementFrame":
			sel.DecrementFrame()
		case "setShowOverlay":
			sel.SetShowOverlay(msg.Flag)
		default:
			log.Warn("unknown harness op", zap.String("op", msg.Op))
		}
	}
}

func (h *Handler) renderAndPush(
	ctx context.Context,
	conn *websocket.Conn,
	state selector.SelectionState,
	req selector.RenderRequest,
	log *zap.Logger,
) {
	out := outboundMessage{
		State: stateView{
			VideoID:     state.VideoID,
			FrameIndex:  state.FrameIndex,
			ShowOverlay: state.ShowOverlay,
		},
	}

	renderCtx, cancel := context.WithTimeout(ctx, h.renderTimeout)
	payload, err := h.renderer.Render(renderCtx, req)
	cancel()
	if err != nil {
		log.Warn("render failed",
			zap.String("video_id", req.VideoID),
			zap.Int("frame_index", req.FrameIndex),
			zap.Error(err),
		)
		out.Error = err.Error()
	} else {
		out.Payload = payload
	}

	if err := conn.WriteJSON(out); err != nil {
		log.Warn("websocket write failed", zap.Error(err))
	}
}
