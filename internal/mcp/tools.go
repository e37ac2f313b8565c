package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/anamnesos/hivemind-sub005/internal/consensus"
	"github.com/anamnesos/hivemind-sub005/internal/model"
	"github.com/anamnesos/hivemind-sub005/internal/storage"
)

func (s *Server) registerTools() {
	// claims_create — publish a claim into shared memory.
	s.mcpServer.AddTool(
		mcplib.NewTool("claims_create",
			mcplib.WithDescription(`Publish a claim to the shared team memory.

Claims are statements other agents can query, vote on, and build decisions
over. Pass an idempotency_key to make the call safe to retry: a repeated key
returns the originally stored claim instead of creating a second one.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("statement",
				mcplib.Description("The claim text"),
				mcplib.Required()),
			mcplib.WithString("claim_type",
				mcplib.Description("One of: fact, decision, hypothesis, negative"),
				mcplib.Required()),
			mcplib.WithString("owner",
				mcplib.Description("Agent that owns this claim"),
				mcplib.Required()),
			mcplib.WithNumber("confidence",
				mcplib.Description("Confidence 0.0-1.0 (default 1.0)")),
			mcplib.WithString("idempotency_key",
				mcplib.Description("Client-chosen key for safe retries")),
			mcplib.WithString("supersedes",
				mcplib.Description("ID of a claim this one replaces")),
			mcplib.WithString("session",
				mcplib.Description("Session this claim belongs to")),
			mcplib.WithString("scopes",
				mcplib.Description("Comma-separated scope tags, e.g. \"file:pane.go,topic:resize\"")),
			mcplib.WithNumber("ttl_hours",
				mcplib.Description("Hours until the claim expires and is deprecated")),
		),
		s.handleClaimsCreate,
	)

	// claims_get — fetch one claim by id.
	s.mcpServer.AddTool(
		mcplib.NewTool("claims_get",
			mcplib.WithDescription("Fetch a single claim by id, including its evidence and audit trail."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("id",
				mcplib.Description("Claim ID"),
				mcplib.Required()),
		),
		s.handleClaimsGet,
	)

	// claims_query — structured filtering.
	s.mcpServer.AddTool(
		mcplib.NewTool("claims_query",
			mcplib.WithDescription(`Query claims with structured filters.

Use sessions_back to restrict results to the N most recently active sessions.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("scope", mcplib.Description("Filter by scope tag")),
			mcplib.WithString("claim_type", mcplib.Description("Filter by claim type")),
			mcplib.WithString("status", mcplib.Description("Filter by status")),
			mcplib.WithString("owner", mcplib.Description("Filter by owning agent")),
			mcplib.WithString("session", mcplib.Description("Filter by exact session")),
			mcplib.WithNumber("sessions_back", mcplib.Description("Restrict to the N most recent sessions")),
			mcplib.WithString("order", mcplib.Description("\"asc\" or \"desc\" by creation time (default desc)")),
			mcplib.WithNumber("limit", mcplib.Description("Maximum results to return")),
		),
		s.handleClaimsQuery,
	)

	// claims_search — ranked free-text search.
	s.mcpServer.AddTool(
		mcplib.NewTool("claims_search",
			mcplib.WithDescription(`Search claims by free text.

Results are ranked by lexical relevance weighted by the claim's confidence,
so trusted claims surface above marginal textual matches.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("query",
				mcplib.Description("Free-text search query"),
				mcplib.Required()),
			mcplib.WithString("scope", mcplib.Description("Filter by scope tag")),
			mcplib.WithString("claim_type", mcplib.Description("Filter by claim type")),
			mcplib.WithString("status", mcplib.Description("Filter by status")),
			mcplib.WithNumber("limit", mcplib.Description("Maximum results to return")),
		),
		s.handleClaimsSearch,
	)

	// claims_update_status — fsm-gated status change.
	s.mcpServer.AddTool(
		mcplib.NewTool("claims_update_status",
			mcplib.WithDescription(`Move a claim to a new status.

Legal transitions: proposed -> confirmed/contested/deprecated,
confirmed -> contested/pending_proof/deprecated,
contested -> pending_proof/confirmed/deprecated,
pending_proof -> confirmed/contested/deprecated.
Deprecated is terminal. Illegal transitions are rejected without mutation.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("id", mcplib.Description("Claim ID"), mcplib.Required()),
			mcplib.WithString("status", mcplib.Description("Target status"), mcplib.Required()),
			mcplib.WithString("actor", mcplib.Description("Agent requesting the change"), mcplib.Required()),
			mcplib.WithString("note", mcplib.Description("Audit note explaining the change")),
		),
		s.handleClaimsUpdateStatus,
	)

	// claims_deprecate — shorthand for the terminal transition.
	s.mcpServer.AddTool(
		mcplib.NewTool("claims_deprecate",
			mcplib.WithDescription("Retire a claim. Deprecation is terminal; the claim can never be reactivated."),
			mcplib.WithDestructiveHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("id", mcplib.Description("Claim ID"), mcplib.Required()),
			mcplib.WithString("actor", mcplib.Description("Agent retiring the claim"), mcplib.Required()),
			mcplib.WithString("note", mcplib.Description("Reason for retirement")),
		),
		s.handleClaimsDeprecate,
	)

	// claims_evidence — append an evidence reference.
	s.mcpServer.AddTool(
		mcplib.NewTool("claims_evidence",
			mcplib.WithDescription("Attach an evidence reference to a claim. Evidence is append-only."),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("id", mcplib.Description("Claim ID"), mcplib.Required()),
			mcplib.WithString("ref", mcplib.Description("Evidence reference, e.g. a file path, URL, or test name"), mcplib.Required()),
			mcplib.WithString("relation", mcplib.Description("One of: supports, refutes, neutral (default supports)")),
			mcplib.WithString("added_by", mcplib.Description("Agent attaching the evidence"), mcplib.Required()),
			mcplib.WithNumber("weight", mcplib.Description("Evidence weight 0.0-1.0 (default 1.0)")),
		),
		s.handleClaimsEvidence,
	)

	// decisions_create — record a decision over a claim.
	s.mcpServer.AddTool(
		mcplib.NewTool("decisions_create",
			mcplib.WithDescription(`Record a decision that selected one claim over alternatives.

Alternatives reference rejected claims by id; the chosen claim and every
alternative must already exist. Pass alternatives as a JSON array of
{"claim_id": "...", "rejection_reason": "..."} objects.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("claim_id", mcplib.Description("The chosen claim"), mcplib.Required()),
			mcplib.WithString("decided_by", mcplib.Description("Agent making the decision"), mcplib.Required()),
			mcplib.WithString("context", mcplib.Description("Situation in which the decision was made")),
			mcplib.WithString("rationale", mcplib.Description("Why this claim was chosen")),
			mcplib.WithString("alternatives", mcplib.Description("JSON array of rejected alternatives")),
			mcplib.WithString("session", mcplib.Description("Session this decision belongs to")),
		),
		s.handleDecisionsCreate,
	)

	// decisions_outcome — record what actually happened.
	s.mcpServer.AddTool(
		mcplib.NewTool("decisions_outcome",
			mcplib.WithDescription("Record the real-world outcome of a past decision. Recording again overwrites."),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("id", mcplib.Description("Decision ID"), mcplib.Required()),
			mcplib.WithString("outcome", mcplib.Description("What happened, e.g. \"success\" or \"failure\""), mcplib.Required()),
			mcplib.WithString("notes", mcplib.Description("Detail about the outcome")),
		),
		s.handleDecisionsOutcome,
	)

	// consensus_record — cast a vote.
	s.mcpServer.AddTool(
		mcplib.NewTool("consensus_record",
			mcplib.WithDescription(`Vote agree or disagree on a claim.

Voting again replaces the agent's earlier vote. A disagree vote from any
active agent contests the claim; unanimous agreement across active_agents
confirms it.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("claim_id", mcplib.Description("Claim being voted on"), mcplib.Required()),
			mcplib.WithString("agent", mcplib.Description("Voting agent"), mcplib.Required()),
			mcplib.WithString("position", mcplib.Description("agree or disagree"), mcplib.Required()),
			mcplib.WithString("reason", mcplib.Description("Why the agent holds this position")),
			mcplib.WithString("active_agents", mcplib.Description("Comma-separated agents whose votes count toward consensus"), mcplib.Required()),
		),
		s.handleConsensusRecord,
	)

	// consensus_get — tally all votes ever cast.
	s.mcpServer.AddTool(
		mcplib.NewTool("consensus_get",
			mcplib.WithDescription("Tally the latest vote of every agent that has ever voted on a claim."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("claim_id", mcplib.Description("Claim ID"), mcplib.Required()),
		),
		s.handleConsensusGet,
	)

	// beliefs_snapshot — capture beliefs and detect contradictions.
	s.mcpServer.AddTool(
		mcplib.NewTool("beliefs_snapshot",
			mcplib.WithDescription(`Capture the agent's current belief set and scan it for contradictions.

The snapshot holds every non-deprecated claim the agent owns or that belongs
to the session. Pairs of beliefs with opposite polarity on an overlapping
scope are recorded as contradictions.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("agent", mcplib.Description("Agent whose beliefs to snapshot"), mcplib.Required()),
			mcplib.WithString("session", mcplib.Description("Session to include")),
		),
		s.handleBeliefsSnapshot,
	)

	// beliefs_get — latest stored snapshot.
	s.mcpServer.AddTool(
		mcplib.NewTool("beliefs_get",
			mcplib.WithDescription("Fetch the most recent belief snapshot for an agent and session."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("agent", mcplib.Description("Agent whose snapshot to fetch"), mcplib.Required()),
			mcplib.WithString("session", mcplib.Description("Session to match")),
		),
		s.handleBeliefsGet,
	)

	// contradictions_get — list detected contradictions.
	s.mcpServer.AddTool(
		mcplib.NewTool("contradictions_get",
			mcplib.WithDescription("List detected contradictions, newest first."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("agent", mcplib.Description("Filter by agent")),
			mcplib.WithString("session", mcplib.Description("Filter by session")),
			mcplib.WithBoolean("unresolved", mcplib.Description("Only contradictions not yet resolved")),
		),
		s.handleContradictionsGet,
	)

	// contradictions_resolve — close out a contradiction.
	s.mcpServer.AddTool(
		mcplib.NewTool("contradictions_resolve",
			mcplib.WithDescription("Mark a contradiction as resolved. Resolving again is a no-op."),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("id", mcplib.Description("Contradiction ID"), mcplib.Required()),
			mcplib.WithString("resolved_by", mcplib.Description("Agent resolving the contradiction"), mcplib.Required()),
		),
		s.handleContradictionsResolve,
	)
}

func (s *Server) handleClaimsCreate(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	statement := request.GetString("statement", "")
	claimType := request.GetString("claim_type", "")
	owner := request.GetString("owner", "")
	if statement == "" || claimType == "" || owner == "" {
		return errorResult("statement, claim_type, and owner are required"), nil
	}

	in := model.NewClaimInput{
		IdempotencyKey: request.GetString("idempotency_key", ""),
		Statement:      statement,
		ClaimType:      model.ClaimType(claimType),
		Owner:          owner,
		Session:        request.GetString("session", ""),
		Scopes:         splitList(request.GetString("scopes", "")),
	}
	if conf := request.GetFloat("confidence", -1); conf >= 0 {
		in.Confidence = &conf
	}
	if ttl := request.GetFloat("ttl_hours", 0); ttl > 0 {
		in.TTLHours = &ttl
	}
	if sup := request.GetString("supersedes", ""); sup != "" {
		id, err := uuid.Parse(sup)
		if err != nil {
			return errorResult(fmt.Sprintf("invalid supersedes id: %v", err)), nil
		}
		in.Supersedes = &id
	}

	res, err := s.svc.CreateClaim(ctx, in)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to create claim: %v", err)), nil
	}
	return jsonResult(res), nil
}

func (s *Server) handleClaimsGet(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id, err := uuid.Parse(request.GetString("id", ""))
	if err != nil {
		return errorResult(fmt.Sprintf("invalid claim id: %v", err)), nil
	}
	res, err := s.svc.GetClaim(ctx, id)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to fetch claim: %v", err)), nil
	}
	return jsonResult(res), nil
}

func (s *Server) handleClaimsQuery(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	f := model.QueryFilter{
		Scope:        request.GetString("scope", ""),
		ClaimType:    model.ClaimType(request.GetString("claim_type", "")),
		Status:       model.ClaimStatus(request.GetString("status", "")),
		Owner:        request.GetString("owner", ""),
		Session:      request.GetString("session", ""),
		SessionsBack: request.GetInt("sessions_back", 0),
		Order:        request.GetString("order", ""),
		Limit:        request.GetInt("limit", 50),
	}
	res, err := s.svc.QueryClaims(ctx, f)
	if err != nil {
		return errorResult(fmt.Sprintf("query failed: %v", err)), nil
	}
	return jsonResult(res), nil
}

func (s *Server) handleClaimsSearch(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	query := request.GetString("query", "")
	if query == "" {
		return errorResult("query is required"), nil
	}
	f := model.QueryFilter{
		Scope:     request.GetString("scope", ""),
		ClaimType: model.ClaimType(request.GetString("claim_type", "")),
		Status:    model.ClaimStatus(request.GetString("status", "")),
		Limit:     request.GetInt("limit", 10),
	}
	res, err := s.svc.SearchClaims(ctx, query, f)
	if err != nil {
		return errorResult(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonResult(res), nil
}

func (s *Server) handleClaimsUpdateStatus(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id, err := uuid.Parse(request.GetString("id", ""))
	if err != nil {
		return errorResult(fmt.Sprintf("invalid claim id: %v", err)), nil
	}
	actor := request.GetString("actor", "")
	status := request.GetString("status", "")
	if actor == "" || status == "" {
		return errorResult("status and actor are required"), nil
	}
	res, err := s.svc.UpdateStatus(ctx, id, model.ClaimStatus(status), actor, request.GetString("note", ""))
	if err != nil {
		return errorResult(fmt.Sprintf("status update failed: %v", err)), nil
	}
	return jsonResult(res), nil
}

func (s *Server) handleClaimsDeprecate(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id, err := uuid.Parse(request.GetString("id", ""))
	if err != nil {
		return errorResult(fmt.Sprintf("invalid claim id: %v", err)), nil
	}
	actor := request.GetString("actor", "")
	if actor == "" {
		return errorResult("actor is required"), nil
	}
	res, err := s.svc.Deprecate(ctx, id, actor, request.GetString("note", ""))
	if err != nil {
		return errorResult(fmt.Sprintf("deprecate failed: %v", err)), nil
	}
	return jsonResult(res), nil
}

func (s *Server) handleClaimsEvidence(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id, err := uuid.Parse(request.GetString("id", ""))
	if err != nil {
		return errorResult(fmt.Sprintf("invalid claim id: %v", err)), nil
	}
	ref := request.GetString("ref", "")
	addedBy := request.GetString("added_by", "")
	if ref == "" || addedBy == "" {
		return errorResult("ref and added_by are required"), nil
	}
	ev := model.Evidence{
		Ref:      ref,
		Relation: model.EvidenceRelation(request.GetString("relation", string(model.EvidenceSupports))),
		AddedBy:  addedBy,
		Weight:   request.GetFloat("weight", 1.0),
	}
	res, err := s.svc.AddEvidence(ctx, id, ev)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to add evidence: %v", err)), nil
	}
	return jsonResult(res), nil
}

func (s *Server) handleDecisionsCreate(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	claimID, err := uuid.Parse(request.GetString("claim_id", ""))
	if err != nil {
		return errorResult(fmt.Sprintf("invalid claim_id: %v", err)), nil
	}
	decidedBy := request.GetString("decided_by", "")
	if decidedBy == "" {
		return errorResult("decided_by is required"), nil
	}

	var alts []model.Alternative
	if raw := request.GetString("alternatives", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &alts); err != nil {
			return errorResult(fmt.Sprintf("invalid alternatives JSON: %v", err)), nil
		}
	}

	res, err := s.svc.CreateDecision(ctx, model.NewDecisionInput{
		ClaimID:      claimID,
		DecidedBy:    decidedBy,
		Context:      request.GetString("context", ""),
		Rationale:    request.GetString("rationale", ""),
		Alternatives: alts,
		Session:      request.GetString("session", ""),
	})
	if err != nil {
		return errorResult(fmt.Sprintf("failed to create decision: %v", err)), nil
	}
	return jsonResult(res), nil
}

func (s *Server) handleDecisionsOutcome(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id, err := uuid.Parse(request.GetString("id", ""))
	if err != nil {
		return errorResult(fmt.Sprintf("invalid decision id: %v", err)), nil
	}
	outcome := request.GetString("outcome", "")
	if outcome == "" {
		return errorResult("outcome is required"), nil
	}
	res, err := s.svc.RecordOutcome(ctx, id, outcome, request.GetString("notes", ""))
	if err != nil {
		return errorResult(fmt.Sprintf("failed to record outcome: %v", err)), nil
	}
	return jsonResult(res), nil
}

func (s *Server) handleConsensusRecord(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	claimID, err := uuid.Parse(request.GetString("claim_id", ""))
	if err != nil {
		return errorResult(fmt.Sprintf("invalid claim_id: %v", err)), nil
	}
	agent := request.GetString("agent", "")
	position := request.GetString("position", "")
	activeAgents := splitList(request.GetString("active_agents", ""))
	if agent == "" || position == "" || len(activeAgents) == 0 {
		return errorResult("agent, position, and active_agents are required"), nil
	}

	res, err := s.consensus.Record(ctx, consensus.RecordRequest{
		ClaimID:      claimID,
		Agent:        agent,
		Position:     model.VotePosition(position),
		Reason:       request.GetString("reason", ""),
		ActiveAgents: activeAgents,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("failed to record vote: %v", err)), nil
	}
	return jsonResult(res), nil
}

func (s *Server) handleConsensusGet(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	claimID, err := uuid.Parse(request.GetString("claim_id", ""))
	if err != nil {
		return errorResult(fmt.Sprintf("invalid claim_id: %v", err)), nil
	}
	res, err := s.consensus.Summary(ctx, claimID)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to tally consensus: %v", err)), nil
	}
	return jsonResult(res), nil
}

func (s *Server) handleBeliefsSnapshot(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	agent := request.GetString("agent", "")
	if agent == "" {
		return errorResult("agent is required"), nil
	}
	res, err := s.beliefs.Create(ctx, agent, request.GetString("session", ""))
	if err != nil {
		return errorResult(fmt.Sprintf("snapshot failed: %v", err)), nil
	}
	return jsonResult(res), nil
}

func (s *Server) handleBeliefsGet(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	agent := request.GetString("agent", "")
	if agent == "" {
		return errorResult("agent is required"), nil
	}
	res, err := s.beliefs.Latest(ctx, agent, request.GetString("session", ""))
	if err != nil {
		return errorResult(fmt.Sprintf("failed to fetch snapshot: %v", err)), nil
	}
	return jsonResult(res), nil
}

func (s *Server) handleContradictionsGet(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	f := storage.ContradictionFilter{
		Agent:      request.GetString("agent", ""),
		Session:    request.GetString("session", ""),
		Unresolved: request.GetBool("unresolved", false),
	}
	res, err := s.beliefs.Contradictions(ctx, f)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to list contradictions: %v", err)), nil
	}
	return jsonResult(res), nil
}

func (s *Server) handleContradictionsResolve(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id, err := uuid.Parse(request.GetString("id", ""))
	if err != nil {
		return errorResult(fmt.Sprintf("invalid contradiction id: %v", err)), nil
	}
	resolvedBy := request.GetString("resolved_by", "")
	if resolvedBy == "" {
		return errorResult("resolved_by is required"), nil
	}
	res, err := s.beliefs.Resolve(ctx, id, resolvedBy)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to resolve contradiction: %v", err)), nil
	}
	return jsonResult(res), nil
}

// splitList parses a comma-separated parameter into trimmed non-empty items.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func jsonResult(v any) *mcplib.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("failed to marshal result: %v", err))
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
