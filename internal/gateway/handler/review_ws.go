package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"springforge/internal/analyzer"
	"springforge/internal/gateway/service/convert"
	"springforge/internal/session"
)

const (
	reviewWSWriteWait = 10 * time.Second
	reviewWSPongWait  = 60 * time.Second
	reviewWSPingEvery = (reviewWSPongWait * 9) / 10
)

var reviewWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type reviewWSInbound struct {
	Type        string `json:"type"`
	Feedback    string `json:"feedback,omitempty"`
	BasePackage string `json:"basePackage,omitempty"`
}

type reviewWSOutbound struct {
	Type      string                      `json:"type"`
	SessionID string                      `json:"sessionId,omitempty"`
	State     string                      `json:"state,omitempty"`
	Proposal  *analyzer.StructureProposal `json:"proposal,omitempty"`
	Accepted  bool                        `json:"accepted,omitempty"`
	Code      string                      `json:"code,omitempty"`
	Message   string                      `json:"message,omitempty"`
}

// handleReviewWS is the interactive review channel. The server pushes
// proposal frames whenever the session parks on review; the client
// answers with approve or redo frames.
func (h *SessionHandler) handleReviewWS(w http.ResponseWriter, r *http.Request, id string) {
	conn, err := reviewWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(reviewWSPongWait)); err != nil {
		log.Printf("review ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(reviewWSPongWait))
	})

	writeCh := make(chan reviewWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(reviewWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				// Flush frames queued before the shutdown so the
				// client sees the final error or closed frame.
				for {
					select {
					case out := <-writeCh:
						if err := conn.SetWriteDeadline(time.Now().Add(reviewWSWriteWait)); err != nil {
							return
						}
						if err := conn.WriteJSON(out); err != nil {
							return
						}
					default:
						return
					}
				}
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(reviewWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(reviewWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	subCh, subErr := h.svc.Subscribe(ctx, id)
	if subErr != nil {
		pushReviewWS(writeCh, reviewWSOutbound{
			Type:    "error",
			Code:    "not_found",
			Message: subErr.Error(),
		})
		cancel()
		<-writerDone
		return
	}

	pushReviewWS(writeCh, reviewWSOutbound{
		Type:      "subscribed",
		SessionID: id,
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-subCh:
				if !ok {
					return
				}
				out := reviewWSOutbound{SessionID: id, State: string(snap.State)}
				switch {
				case snap.State == session.StateReviewing && snap.Proposal != nil:
					out.Type = "proposal"
					out.Proposal = snap.Proposal
				case snap.State.Terminal():
					out.Type = "closed"
					out.Message = snap.Error
				default:
					out.Type = "state"
				}
				pushReviewWS(writeCh, out)
			}
		}
	}()

	for {
		var in reviewWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		msgType := strings.ToLower(strings.TrimSpace(in.Type))
		switch msgType {
		case "ping":
			pushReviewWS(writeCh, reviewWSOutbound{Type: "pong"})
		case convert.ActionApprove, convert.ActionRedo:
			err := h.svc.Review(id, convert.Decision{
				Action:      msgType,
				Feedback:    strings.TrimSpace(in.Feedback),
				BasePackage: strings.TrimSpace(in.BasePackage),
			})
			if err != nil {
				pushReviewWS(writeCh, reviewWSOutbound{
					Type:    "error",
					Code:    "failed_precondition",
					Message: err.Error(),
				})
				continue
			}
			pushReviewWS(writeCh, reviewWSOutbound{
				Type:      "decision_ack",
				SessionID: id,
				Accepted:  true,
				Message:   msgType,
			})
		default:
			pushReviewWS(writeCh, reviewWSOutbound{
				Type:    "error",
				Code:    "invalid_argument",
				Message: "unsupported type: " + msgType,
			})
		}
	}
}

// pushReviewWS drops the oldest queued frame instead of blocking when
// the client cannot keep up.
func pushReviewWS(writeCh chan reviewWSOutbound, out reviewWSOutbound) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
