package dashboard

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/TrueSelph/jvcli/internal/platform"
	"github.com/TrueSelph/jvcli/internal/session"
)

// ----- Session -----

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token      string `json:"token"`
	RootID     string `json:"root_id"`
	Expiration string `json:"expiration,omitempty"`
}

// Login proxies platform login and mints a dashboard session. In
// development mode, empty credentials fall back to the configured
// JIVAS_USER and JIVAS_PASSWORD.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if req.Email == "" && req.Password == "" && h.cfg.Development() {
		req.Email = h.cfg.Email
		req.Password = h.cfg.Password
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required", nil)
		return
	}

	platformSession, err := platform.NewClient(h.cfg.PlatformURL, "").Login(req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "login failed", err)
		return
	}

	token, err := h.sessions.Issue(platformSession.RootID, platformSession.Token, platformSession.Expiration)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session", err)
		return
	}

	session.SetCookie(w, token, h.sessions.TTL())
	writeJSON(w, http.StatusOK, LoginResponse{
		Token:      token,
		RootID:     platformSession.RootID,
		Expiration: platformSession.Expiration,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	session.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"root_id":    claims.RootID,
		"expiration": claims.PlatformExpiration,
		"expires_at": claims.ExpiresAt,
	})
}

// platformError maps a downstream failure to an HTTP response. A platform
// 401 invalidates the dashboard session.
func (h *Handler) platformError(w http.ResponseWriter, err error) {
	if errors.Is(err, platform.ErrUnauthorized) {
		session.ClearCookie(w)
		writeError(w, http.StatusUnauthorized, "platform session expired", nil)
		return
	}
	writeError(w, http.StatusBadGateway, "platform request failed", err)
}

// ----- Agents -----

func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.platformClient(r).ListAgents()
	if err != nil {
		h.platformError(w, err)
		return
	}
	if agents == nil {
		agents = []platform.Agent{}
	}
	writeJSON(w, http.StatusOK, agents)
}

func (h *Handler) GetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := h.platformClient(r).GetAgent(r.PathValue("agent"))
	if err != nil {
		h.platformError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (h *Handler) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	agent, err := h.platformClient(r).UpdateAgent(r.PathValue("agent"), data)
	if err != nil {
		h.platformError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

type ImportAgentRequest struct {
	Descriptor string `json:"descriptor"`
}

// ImportAgent imports an agent from a descriptor document.
func (h *Handler) ImportAgent(w http.ResponseWriter, r *http.Request) {
	var req ImportAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Descriptor == "" {
		writeError(w, http.StatusBadRequest, "descriptor required", nil)
		return
	}

	result, err := h.platformClient(r).ImportAgentDescriptor(req.Descriptor)
	if err != nil {
		h.platformError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) InitAgents(w http.ResponseWriter, r *http.Request) {
	result, err := h.platformClient(r).InitAgents()
	if err != nil {
		h.platformError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Healthcheck(w http.ResponseWriter, r *http.Request) {
	report, err := h.platformClient(r).Healthcheck(r.PathValue("agent"))
	if err != nil {
		h.platformError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ----- Actions -----

func (h *Handler) ListActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.platformClient(r).ListActions(r.PathValue("agent"))
	if err != nil {
		h.platformError(w, err)
		return
	}
	if actions == nil {
		actions = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, actions)
}

func (h *Handler) GetAction(w http.ResponseWriter, r *http.Request) {
	action, err := h.platformClient(r).GetAction(r.PathValue("agent"), r.PathValue("action"))
	if err != nil {
		h.platformError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, action)
}

func (h *Handler) UpdateAction(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	action, err := h.platformClient(r).UpdateAction(r.PathValue("agent"), r.PathValue("action"), data)
	if err != nil {
		h.platformError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, action)
}

// ----- Chat -----

type InteractRequest struct {
	Utterance string `json:"utterance"`
	SessionID string `json:"session_id,omitempty"`
	TTS       bool   `json:"tts,omitempty"`
}

type InteractReply struct {
	Message   string `json:"message"`
	AudioURL  string `json:"audio_url,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Interact relays one conversational exchange and records both sides of
// it in the transcript store.
func (h *Handler) Interact(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("agent")

	var req InteractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Utterance == "" {
		writeError(w, http.StatusBadRequest, "utterance required", nil)
		return
	}

	reply, err := h.platformClient(r).Interact(agentID, req.Utterance, req.SessionID, req.TTS)
	if err != nil {
		h.platformError(w, err)
		return
	}

	if h.store != nil {
		if _, err := h.store.AppendMessage(agentID, "user", req.Utterance, nil); err != nil {
			h.logger.Error("recording user message", "err", err)
		}
		if _, err := h.store.AppendMessage(agentID, "assistant", reply.Message, reply.Raw); err != nil {
			h.logger.Error("recording assistant message", "err", err)
		}
	}

	writeJSON(w, http.StatusOK, InteractReply{
		Message:   reply.Message,
		AudioURL:  reply.AudioURL,
		SessionID: reply.SessionID,
	})
}

func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusOK, []Message{})
		return
	}
	messages, err := h.store.Messages(r.PathValue("agent"), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load transcript", err)
		return
	}
	if messages == nil {
		messages = []Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *Handler) ClearChat(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		if err := h.store.ClearMessages(r.PathValue("agent")); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to clear transcript", err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// ----- Walkers -----

// WalkerExec relays a walker execution, passing any multipart file
// attachments through to the platform.
func (h *Handler) WalkerExec(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("agent")
	walker := r.PathValue("walker")

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body", err)
		return
	}

	moduleRoot := r.FormValue("module_root")
	if moduleRoot == "" {
		moduleRoot = "jivas.agent.action"
	}

	var args map[string]any
	if raw := r.FormValue("args"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			writeError(w, http.StatusBadRequest, "invalid args", err)
			return
		}
	}

	var files []platform.Attachment
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["attachments"] {
			f, err := fh.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "reading attachment", err)
				return
			}
			content, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, "reading attachment", err)
				return
			}
			files = append(files, platform.Attachment{
				Name:    fh.Filename,
				Content: content,
				MIME:    fh.Header.Get("Content-Type"),
			})
		}
	}

	result, err := h.platformClient(r).WalkerExec(agentID, moduleRoot, walker, args, files)
	if err != nil {
		h.platformError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ----- Analytics -----

// Analytics serves the date-bucketed activity series. The metric path
// segment selects interactions, users or channels.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("agent")
	metric := r.PathValue("metric")

	q := r.URL.Query()
	end := time.Now()
	if v := q.Get("end"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end date", err)
			return
		}
		end = parsed
	}
	start := end.AddDate(0, 0, -13)
	if v := q.Get("start"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start date", err)
			return
		}
		start = parsed
	}
	timezone := q.Get("timezone")
	if timezone == "" {
		timezone = "UTC"
	}

	client := h.platformClient(r)
	var series *platform.Series
	var err error
	switch metric {
	case "interactions":
		series, err = client.InteractionsByDate(agentID, start, end, timezone)
	case "users":
		series, err = client.UsersByDate(agentID, start, end, timezone)
	case "channels":
		series, err = client.ChannelsByDate(agentID, start, end, timezone)
	default:
		writeError(w, http.StatusNotFound, "unknown metric", nil)
		return
	}
	if err != nil {
		h.platformError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}
