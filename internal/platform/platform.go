// Package platform provides client functionality for communicating with a
// running Jivas server.
package platform

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"
)

// DefaultBaseURL is the address of a locally launched server.
// Can be overridden via the JIVAS_BASE_URL environment variable.
const DefaultBaseURL = "http://localhost:8000"

// ErrUnauthorized is returned when the server rejects the session token.
// Callers clear their session and prompt for a fresh login.
var ErrUnauthorized = errors.New("platform: unauthorized")

// Client communicates with a Jivas server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	AuthToken  string
}

// NewClient creates a platform client. An empty baseURL falls back to the
// JIVAS_BASE_URL environment variable, then DefaultBaseURL.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("JIVAS_BASE_URL")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		AuthToken: token,
	}
}

// --- Wire types ---

// Session identifies an authenticated platform user.
type Session struct {
	Token      string
	RootID     string
	Expiration string
}

// Agent is a selector entry for an agent running on the server.
type Agent struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// InteractResponse is an agent's reply to one conversational exchange.
type InteractResponse struct {
	Message   string
	AudioURL  string
	SessionID string
	Raw       json.RawMessage
}

// Attachment is a file uploaded alongside a walker execution.
type Attachment struct {
	Name    string
	Content []byte
	MIME    string
}

// SeriesPoint is one day's tally.
type SeriesPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Series is a date-bucketed activity metric with its period total.
type Series struct {
	Data  []SeriesPoint `json:"data"`
	Total int           `json:"total"`
}

// --- Accounts ---

// Login authenticates against the server and returns a session.
func (c *Client) Login(email, password string) (*Session, error) {
	req := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	resp, err := c.post("/user/login", body)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result struct {
		User struct {
			RootID     string `json:"root_id"`
			Expiration string `json:"expiration"`
		} `json:"user"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &Session{
		Token:      result.Token,
		RootID:     result.User.RootID,
		Expiration: result.User.Expiration,
	}, nil
}

// Register creates a new user account on the server.
func (c *Client) Register(email, password string) (map[string]any, error) {
	req := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	resp, err := c.post("/user/register", body)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.parseError(resp)
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return result, nil
}

// Ping checks whether the server is reachable and healthy.
func (c *Client) Ping() error {
	resp, err := c.get("/healthz")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// --- Agents ---

// ListAgents returns the agents running on the server as selector entries.
func (c *Client) ListAgents() ([]Agent, error) {
	body, err := c.walker("list_agents", map[string]any{"reporting": true})
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Reports []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"reports"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	agents := make([]Agent, 0, len(envelope.Reports))
	for _, r := range envelope.Reports {
		agents = append(agents, Agent{ID: r.ID, Label: r.Name})
	}
	return agents, nil
}

// GetAgent fetches the full record of one agent.
func (c *Client) GetAgent(agentID string) (map[string]any, error) {
	body, err := c.walker("get_agent", map[string]any{"agent_id": agentID})
	if err != nil {
		return nil, err
	}

	agent := map[string]any{}
	if _, err := firstReport(body, &agent); err != nil {
		return nil, err
	}
	return agent, nil
}

// UpdateAgent applies data to an agent's record and returns the result.
func (c *Client) UpdateAgent(agentID string, data map[string]any) (map[string]any, error) {
	body, err := c.walker("update_agent", map[string]any{
		"agent_id":   agentID,
		"agent_data": data,
	})
	if err != nil {
		return nil, err
	}

	agent := map[string]any{}
	if _, err := firstReport(body, &agent); err != nil {
		return nil, err
	}
	return agent, nil
}

// ImportAgent imports a packaged agent by name. An empty version means latest.
func (c *Client) ImportAgent(name, version string) (map[string]any, error) {
	if version == "" {
		version = "latest"
	}

	body, err := c.walker("import_agent", map[string]any{
		"daf_name":    name,
		"daf_version": version,
	})
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return result, nil
}

// ImportAgentDescriptor imports an agent from raw descriptor YAML.
func (c *Client) ImportAgentDescriptor(descriptor string) (map[string]any, error) {
	body, err := c.walker("import_agent", map[string]any{"descriptor": descriptor})
	if err != nil {
		return nil, err
	}

	agent := map[string]any{}
	if _, err := firstReport(body, &agent); err != nil {
		return nil, err
	}
	return agent, nil
}

// InitAgents re-initializes every agent registered on the server.
func (c *Client) InitAgents() (map[string]any, error) {
	body, err := c.walker("init_agents", map[string]any{})
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return result, nil
}

// Healthcheck reports the health of one agent. Degraded agents answer on
// 501 and 503 as well as 200, so those statuses yield a report rather
// than an error.
func (c *Client) Healthcheck(agentID string) (map[string]any, error) {
	body, err := c.walker("healthcheck", map[string]any{"agent_id": agentID})
	if err != nil {
		return nil, err
	}

	report := map[string]any{}
	if _, err := firstReport(body, &report); err != nil {
		return nil, err
	}
	return report, nil
}

// --- Actions ---

// ListActions returns the actions installed on an agent.
func (c *Client) ListActions(agentID string) ([]map[string]any, error) {
	body, err := c.walker("list_actions", map[string]any{"agent_id": agentID})
	if err != nil {
		return nil, err
	}

	var actions []map[string]any
	if _, err := firstReport(body, &actions); err != nil {
		return nil, err
	}
	return actions, nil
}

// GetAction fetches the record of one action on an agent.
func (c *Client) GetAction(agentID, actionID string) (map[string]any, error) {
	body, err := c.walker("get_action", map[string]any{
		"agent_id":  agentID,
		"action_id": actionID,
	})
	if err != nil {
		return nil, err
	}

	action := map[string]any{}
	if _, err := firstReport(body, &action); err != nil {
		return nil, err
	}
	return action, nil
}

// UpdateAction applies data to an action's record and returns the result.
func (c *Client) UpdateAction(agentID, actionID string, data map[string]any) (map[string]any, error) {
	body, err := c.walker("update_action", map[string]any{
		"agent_id":    agentID,
		"action_id":   actionID,
		"action_data": data,
	})
	if err != nil {
		return nil, err
	}

	action := map[string]any{}
	if _, err := firstReport(body, &action); err != nil {
		return nil, err
	}
	return action, nil
}

// WalkerExec executes a walker exposed by an agent action, optionally
// uploading attachments. The response shape is walker-specific, so the
// decoded JSON is returned as-is.
func (c *Client) WalkerExec(agentID, moduleRoot, walker string, args map[string]any, files []Attachment) (any, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("agent_id", agentID); err != nil {
		return nil, fmt.Errorf("building form: %w", err)
	}
	if err := mw.WriteField("module_root", moduleRoot); err != nil {
		return nil, fmt.Errorf("building form: %w", err)
	}
	if err := mw.WriteField("walker", walker); err != nil {
		return nil, fmt.Errorf("building form: %w", err)
	}
	if args != nil {
		encoded, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("marshaling args: %w", err)
		}
		if err := mw.WriteField("args", string(encoded)); err != nil {
			return nil, fmt.Errorf("building form: %w", err)
		}
	}
	for _, att := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="attachments"; filename=%q`, att.Name))
		if att.MIME != "" {
			h.Set("Content-Type", att.MIME)
		}
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("building form: %w", err)
		}
		if _, err := part.Write(att.Content); err != nil {
			return nil, fmt.Errorf("building form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("building form: %w", err)
	}

	req, err := http.NewRequest("POST", c.BaseURL+"/action/walker", &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return result, nil
}

// --- Conversation ---

// Interact sends an utterance to an agent and returns its reply. sessionID
// may be empty to start a new conversation; the reply carries the session
// to use for the next turn.
func (c *Client) Interact(agentID, utterance, sessionID string, tts bool) (*InteractResponse, error) {
	req := struct {
		Utterance string `json:"utterance"`
		SessionID string `json:"session_id"`
		AgentID   string `json:"agent_id"`
		TTS       bool   `json:"tts"`
		Verbose   bool   `json:"verbose"`
	}{utterance, sessionID, agentID, tts, true}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	resp, err := c.post("/interact", body)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	var result struct {
		Response struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			AudioURL  string `json:"audio_url"`
			SessionID string `json:"session_id"`
		} `json:"response"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &InteractResponse{
		Message:   result.Response.Message.Content,
		AudioURL:  result.Response.AudioURL,
		SessionID: result.Response.SessionID,
		Raw:       raw,
	}, nil
}

// --- Analytics ---

// InteractionsByDate returns daily interaction counts between start and end.
func (c *Client) InteractionsByDate(agentID string, start, end time.Time, timezone string) (*Series, error) {
	return c.series("get_interactions_by_date", agentID, start, end, timezone)
}

// UsersByDate returns daily active user counts between start and end.
func (c *Client) UsersByDate(agentID string, start, end time.Time, timezone string) (*Series, error) {
	return c.series("get_users_by_date", agentID, start, end, timezone)
}

// ChannelsByDate returns daily channel activity counts between start and end.
func (c *Client) ChannelsByDate(agentID string, start, end time.Time, timezone string) (*Series, error) {
	return c.series("get_channels_by_date", agentID, start, end, timezone)
}

func (c *Client) series(name, agentID string, start, end time.Time, timezone string) (*Series, error) {
	body, err := c.walker(name, map[string]any{
		"agent_id":   agentID,
		"reporting":  true,
		"start_date": start.Format("2006-01-02"),
		"end_date":   end.Format("2006-01-02"),
		"timezone":   timezone,
	})
	if err != nil {
		return nil, err
	}

	series := &Series{}
	if _, err := firstReport(body, series); err != nil {
		return nil, err
	}
	return series, nil
}

// --- Helper methods ---

// walker posts payload to a walker endpoint and returns the raw response
// body. Statuses 501 and 503 still carry a meaningful body for degraded
// agents, so they pass through like 200.
func (c *Client) walker(name string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	resp, err := c.post("/walker/"+name, body)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNotImplemented, http.StatusServiceUnavailable:
	default:
		return nil, c.parseError(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return raw, nil
}

// firstReport decodes the first walker report into out. It reports whether
// a report was present; absent reports leave out untouched.
func firstReport(body []byte, out any) (bool, error) {
	var envelope struct {
		Reports []json.RawMessage `json:"reports"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false, fmt.Errorf("decoding response: %w", err)
	}
	if len(envelope.Reports) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(envelope.Reports[0], out); err != nil {
		return false, fmt.Errorf("decoding report: %w", err)
	}
	return true, nil
}

func (c *Client) get(path string) (*http.Response, error) {
	req, err := http.NewRequest("GET", c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}
	return c.HTTPClient.Do(req)
}

func (c *Client) post(path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequest("POST", c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}
	return c.HTTPClient.Do(req)
}

func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var errResp struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Detail != "" {
		return fmt.Errorf("%s", errResp.Detail)
	}
	return fmt.Errorf("server error: %d %s", resp.StatusCode, string(body))
}
