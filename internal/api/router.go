package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/loopyhq/loopy/internal/services"
)

// Router wires the HTTP surface to the domain services. All state flows
// through the loop service; handlers only translate requests and map errors.
type Router struct {
	loops       *services.LoopService
	collation   *services.CollationService
	editions    *services.EditionService
	submissions *services.SubmissionService
	baseURL     string
	logger      *zap.Logger
}

func NewRouter(
	loops *services.LoopService,
	collation *services.CollationService,
	editions *services.EditionService,
	submissions *services.SubmissionService,
	baseURL string,
	logger *zap.Logger,
) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		loops:       loops,
		collation:   collation,
		editions:    editions,
		submissions: submissions,
		baseURL:     strings.TrimRight(baseURL, "/"),
		logger:      logger,
	}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/seed", rt.handleSeed)        // POST
	mux.HandleFunc("/api/loops", rt.handleLoops)      // GET, POST
	mux.HandleFunc("/api/loops/", rt.handleLoopScoped)
	mux.HandleFunc("/loop/", rt.handlePublic) // GET /loop/{id}/read|respond
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses. Nothing from the
// generation collaborators ever reaches here; their failures are absorbed
// upstream by fallbacks.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrLoopNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateEmail), errors.Is(err, services.ErrNotCurated):
		status = http.StatusConflict
	case errors.Is(err, services.ErrNoMemberSelected), errors.Is(err, services.ErrEmptySubmission):
		status = http.StatusBadRequest
	default:
		if se, ok := services.AsServiceError(err); ok {
			switch se.Code {
			case services.ErrorInvalid:
				status = http.StatusBadRequest
			case services.ErrorNotFound:
				status = http.StatusNotFound
			case services.ErrorConflict:
				status = http.StatusConflict
			case services.ErrorBadGateway:
				status = http.StatusBadGateway
			}
		}
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// POST /api/seed restores the built-in demo loop.
func (rt *Router) handleSeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	loop := rt.loops.SeedDemo()
	writeJSON(w, http.StatusOK, loop)
}

// GET|POST /api/loops
func (rt *Router) handleLoops(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, rt.loops.List())
	case http.MethodPost:
		rt.saveLoop(w, r, "")
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (rt *Router) saveLoop(w http.ResponseWriter, r *http.Request, forceID string) {
	var loop services.Loop
	if err := json.NewDecoder(r.Body).Decode(&loop); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if forceID != "" {
		loop.ID = forceID
	}
	saved, err := rt.loops.SaveLoop(loop)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// handleLoopScoped dispatches /api/loops/{id}[/...] by splitting the
// remainder of the path.
func (rt *Router) handleLoopScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/loops/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	id := parts[0]
	sub := parts[1:]

	switch {
	case len(sub) == 0:
		rt.handleLoop(w, r, id)
	case sub[0] == "members" && len(sub) == 1 && r.Method == http.MethodPost:
		rt.handleAddMember(w, r, id)
	case sub[0] == "members" && len(sub) == 2 && r.Method == http.MethodDelete:
		rt.respond(w, rt.loops.RemoveMember(id, sub[1]))
	case sub[0] == "questions" && len(sub) == 1 && r.Method == http.MethodPost:
		rt.handleAddQuestions(w, r, id)
	case sub[0] == "questions" && len(sub) == 2 && sub[1] == "suggest" && r.Method == http.MethodPost:
		rt.handleSuggest(w, r, id)
	case sub[0] == "questions" && len(sub) == 2 && r.Method == http.MethodDelete:
		rt.respond(w, rt.loops.RemoveQuestion(id, sub[1]))
	case sub[0] == "responses" && len(sub) == 1 && r.Method == http.MethodPost:
		rt.handleSubmit(w, r, id)
	case sub[0] == "generate" && len(sub) == 1 && r.Method == http.MethodPost:
		rt.handleGenerate(w, r, id)
	case sub[0] == "collation-mode" && len(sub) == 1 && r.Method == http.MethodPost:
		rt.handleCollationMode(w, r, id)
	case sub[0] == "publish" && len(sub) == 1 && r.Method == http.MethodPost:
		rt.handlePublish(w, r, id)
	case sub[0] == "editions" && len(sub) == 1 && r.Method == http.MethodGet:
		rt.handleListEditions(w, id)
	case sub[0] == "editions" && len(sub) == 2 && r.Method == http.MethodGet:
		rt.handleGetEdition(w, id, sub[1])
	case sub[0] == "editions" && len(sub) == 3 && sub[2] == "export" && r.Method == http.MethodGet:
		rt.handleExportEdition(w, id, sub[1])
	case sub[0] == "links" && len(sub) == 1 && r.Method == http.MethodGet:
		rt.handleLinks(w, id)
	default:
		http.NotFound(w, r)
	}
}

func (rt *Router) respond(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (rt *Router) handleLoop(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		loop, err := rt.loops.Get(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, loop)
	case http.MethodPut:
		rt.saveLoop(w, r, id)
	case http.MethodDelete:
		rt.respond(w, rt.loops.DeleteLoop(id))
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (rt *Router) handleAddMember(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Name   string `json:"name"`
		Email  string `json:"email"`
		Avatar string `json:"avatar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	member, err := rt.loops.AddMember(id, req.Name, req.Email, req.Avatar)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (rt *Router) handleAddQuestions(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Texts []string `json:"texts"`
		Text  string   `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	texts := req.Texts
	if req.Text != "" {
		texts = append(texts, req.Text)
	}
	added, err := rt.loops.AddQuestions(id, texts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, added)
}

func (rt *Router) handleSuggest(w http.ResponseWriter, r *http.Request, id string) {
	suggestions, err := rt.collation.SuggestQuestions(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": suggestions})
}

func (rt *Router) handleSubmit(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		MemberID string            `json:"member_id"`
		Answers  map[string]string `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	responses, err := rt.submissions.Submit(services.SubmitRequest{
		LoopID:   id,
		MemberID: req.MemberID,
		Answers:  req.Answers,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": len(responses)})
}

func (rt *Router) handleGenerate(w http.ResponseWriter, r *http.Request, id string) {
	draft, err := rt.collation.Generate(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (rt *Router) handleCollationMode(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Mode services.CollationMode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	loop, err := rt.collation.SetCollationMode(id, req.Mode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loop)
}

// handlePublish streams delivery progress as NDJSON lines, one per member,
// followed by the committed edition. The fan-out is strictly sequential so
// the caller observes each step as it happens.
func (rt *Router) handlePublish(w http.ResponseWriter, r *http.Request, id string) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	edition, err := rt.editions.Publish(id, func(p services.DeliveryProgress) {
		_ = enc.Encode(map[string]any{"progress": p})
		if flusher != nil {
			flusher.Flush()
		}
	})
	if err != nil {
		_ = enc.Encode(map[string]string{"error": err.Error()})
		return
	}
	_ = enc.Encode(map[string]any{"edition": edition})
}

func (rt *Router) handleListEditions(w http.ResponseWriter, id string) {
	editions, err := rt.editions.ListEditions(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, editions)
}

func (rt *Router) handleGetEdition(w http.ResponseWriter, loopID, editionID string) {
	edition, err := rt.editions.GetEdition(loopID, editionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, edition)
}

func (rt *Router) handleExportEdition(w http.ResponseWriter, loopID, editionID string) {
	loop, err := rt.loops.Get(loopID)
	if err != nil {
		writeError(w, err)
		return
	}
	edition, err := rt.editions.GetEdition(loopID, editionID)
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := services.ExportEditionCSV(loop, edition)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=issue-%d.csv", edition.IssueNumber))
	_, _ = w.Write(data)
}

func (rt *Router) handleLinks(w http.ResponseWriter, id string) {
	if _, err := rt.loops.Get(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"read":    fmt.Sprintf("%s/loop/%s/read", rt.baseURL, id),
		"respond": fmt.Sprintf("%s/loop/%s/respond", rt.baseURL, id),
	})
}

// handlePublic serves the shareable reader and respond views:
// GET /loop/{id}/read and GET /loop/{id}/respond.
func (rt *Router) handlePublic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/loop/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	id, mode := parts[0], parts[1]
	switch mode {
	case "read":
		rt.handleRead(w, id)
	case "respond":
		rt.handleRespond(w, id)
	default:
		http.NotFound(w, r)
	}
}

// handleRead renders the latest published edition, or the live draft when
// nothing has been published yet. Both paths group responses with the same
// aggregation; archived editions just feed it their frozen response set.
func (rt *Router) handleRead(w http.ResponseWriter, id string) {
	loop, err := rt.loops.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	// Grouping resolves members by id, so the sanitized records work there too
	// and grouped entries never carry emails onto the public route.
	members := publicMembers(loop.Members)
	payload := map[string]any{
		"loop_id":        loop.ID,
		"name":           loop.Name,
		"members":        members,
		"collation_mode": loop.CollationMode,
	}
	if len(loop.Editions) > 0 {
		latest := loop.Editions[0]
		payload["issue_number"] = latest.IssueNumber
		payload["publish_date"] = latest.PublishDate
		payload["header_image"] = latest.HeaderImage
		payload["intro_text"] = latest.IntroText
		payload["narrative_text"] = latest.NarrativeText
		payload["collation_mode"] = latest.CollationMode
		payload["groups"] = services.GroupByQuestion(loop.Questions, latest.Responses, members)
	} else {
		if loop.Draft != nil {
			payload["generated_at"] = loop.Draft.GeneratedAt
			payload["header_image"] = loop.Draft.HeaderImage
			payload["intro_text"] = loop.Draft.IntroText
			payload["narrative_text"] = loop.Draft.NarrativeText
		}
		payload["groups"] = services.GroupByQuestion(loop.Questions, loop.Responses, members)
	}
	writeJSON(w, http.StatusOK, payload)
}

// handleRespond returns the submission intake payload for the live cycle.
func (rt *Router) handleRespond(w http.ResponseWriter, id string) {
	loop, err := rt.loops.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"loop_id":   loop.ID,
		"name":      loop.Name,
		"questions": loop.Questions,
		"members":   publicMembers(loop.Members),
	})
}

// publicMembers strips emails from member records served on public routes.
func publicMembers(members []services.Member) []services.Member {
	out := make([]services.Member, len(members))
	for i, m := range members {
		m.Email = ""
		out[i] = m
	}
	return out
}
