package resolution

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/linkage-labs/linkage/domain/entity"
	"github.com/linkage-labs/linkage/domain/relationship"
	"github.com/linkage-labs/linkage/pkg/logger"
)

// EntityStore is the slice of the entity repository the resolution engine
// needs. Satisfied by *entity.Repository.
type EntityStore interface {
	GetByEntityID(ctx context.Context, entityID string) (*entity.Entity, error)
	GetMany(ctx context.Context, entityIDs []string) ([]*entity.Entity, error)
	Update(ctx context.Context, e *entity.Entity) (bool, error)
}

// RelationshipStore is the slice of the relationship repository the resolution
// engine needs. Satisfied by *relationship.Repository.
type RelationshipStore interface {
	Create(ctx context.Context, rel *relationship.Relationship) (uuid.UUID, error)
	FindByEntitiesAndType(ctx context.Context, a, b, relType string) ([]*relationship.Relationship, error)
}

// Merge step names, reported in FailedStep when a step fails.
const (
	stepConflictDetection = "conflict_detection"
	stepApplyTarget       = "apply_target"
	stepUpdateSource      = "update_source"
	stepTransferLinks     = "transfer_links"
	stepAuditRelationship = "audit_relationship"
)

// FieldConflict records a field where source and target disagreed and how the
// disagreement was settled.
type FieldConflict struct {
	Field       string `json:"field"`
	SourceValue string `json:"source_value"`
	TargetValue string `json:"target_value"`
	Resolution  string `json:"resolution"`
}

// MergeContext carries the decision metadata into a merge.
type MergeContext struct {
	Confidence        float64
	ResolvedBy        string
	MatchedAttributes []string
	Notes             string
}

// MergeResult reports the outcome of a merge, including how far it got when a
// step failed.
type MergeResult struct {
	Success          bool
	FailedStep       string
	Error            string
	RelationshipID   *uuid.UUID
	UpdatedEntityIDs []string
	Conflicts        []FieldConflict
}

// MergeResolver merges a confirmed duplicate (source) into its surviving
// record (target): field-level consolidation on the target, resolution
// metadata on the source, idempotent transfer of previously linked entities,
// and a persisted audit edge.
type MergeResolver struct {
	entities      EntityStore
	relationships RelationshipStore
	log           *slog.Logger
}

// NewMergeResolver creates a new merge resolver.
func NewMergeResolver(entities EntityStore, relationships RelationshipStore, log *slog.Logger) *MergeResolver {
	return &MergeResolver{
		entities:      entities,
		relationships: relationships,
		log:           log.With(logger.Scope("resolution.merger")),
	}
}

// Merge runs the merge pipeline. Steps run in order and the first failure
// stops the pipeline; earlier writes are not rolled back, so a retry with
// fresh reads converges (every step is idempotent on already-merged state).
func (m *MergeResolver) Merge(ctx context.Context, source, target *entity.Entity, mc MergeContext) *MergeResult {
	result := &MergeResult{}
	now := time.Now().UTC()

	conflicts := m.applyFields(source, target, now, mc)
	result.Conflicts = conflicts

	// Linked-entity union happens on the same target write: the target adopts
	// the source itself plus everything previously merged into the source.
	transferred := unionLinked(target.LinkedEntities(), source.LinkedEntities(), source.EntityID)
	target.Resolution.LinkedEntities = transferred

	ok, err := m.entities.Update(ctx, target)
	if err != nil {
		return m.fail(result, stepApplyTarget, err.Error())
	}
	if !ok {
		return m.fail(result, stepApplyTarget, "target entity was modified concurrently")
	}
	result.UpdatedEntityIDs = append(result.UpdatedEntityIDs, target.EntityID)

	source.Resolution.Status = entity.ResolutionResolved
	source.Resolution.MasterEntityID = target.EntityID
	source.Resolution.Confidence = mc.Confidence
	source.Resolution.ResolvedBy = mc.ResolvedBy
	source.Resolution.ResolvedAt = now
	source.Status = entity.StatusArchived

	ok, err = m.entities.Update(ctx, source)
	if err != nil {
		return m.fail(result, stepUpdateSource, err.Error())
	}
	if !ok {
		return m.fail(result, stepUpdateSource, "source entity was modified concurrently")
	}
	result.UpdatedEntityIDs = append(result.UpdatedEntityIDs, source.EntityID)

	if err := m.repointLinked(ctx, source, target, result); err != nil {
		return m.fail(result, stepTransferLinks, err.Error())
	}

	relID, err := m.ensureAuditEdge(ctx, source, target, mc, conflicts)
	if err != nil {
		return m.fail(result, stepAuditRelationship, err.Error())
	}
	result.RelationshipID = &relID

	result.Success = true
	m.log.Info("entities merged",
		slog.String("source", source.EntityID),
		slog.String("target", target.EntityID),
		slog.Int("conflicts", len(conflicts)),
	)
	return result
}

func (m *MergeResolver) fail(result *MergeResult, step, msg string) *MergeResult {
	result.FailedStep = step
	result.Error = msg
	m.log.Error("merge step failed", slog.String("step", step), slog.String("error", msg))
	return result
}

// applyFields consolidates source fields into target and returns the detected
// conflicts. Strategies per field:
//
//	name:        longer full name wins, ties keep target; aliases union
//	identifiers: union; colliding types keep target, source value kept as <type>_alt
//	contact:     per sub-field, prefer the non-empty / more complete value
//	dob:         prefer present; disagreement keeps target, recorded as conflict
//	risk:        higher level wins, score is the max
//	status:      active if either side is active
func (m *MergeResolver) applyFields(source, target *entity.Entity, now time.Time, mc MergeContext) []FieldConflict {
	var conflicts []FieldConflict

	sName, tName := source.FullName(), target.FullName()
	if sName != "" && tName != "" && !equalFoldTrim(sName, tName) {
		resolution := "target name retained"
		if len(sName) > len(tName) {
			aliases := target.Name.Aliases
			target.Name = source.Name
			target.Name.Aliases = aliases
			resolution = "longer source name adopted"
		}
		conflicts = append(conflicts, FieldConflict{
			Field: "name", SourceValue: sName, TargetValue: tName, Resolution: resolution,
		})
	}
	target.Name.Aliases = unionStrings(target.Name.Aliases, source.Name.Aliases)
	// The losing full name survives as an alias.
	for _, n := range []string{sName, tName} {
		if n != "" && !equalFoldTrim(n, target.FullName()) {
			target.Name.Aliases = unionStrings(target.Name.Aliases, []string{n})
		}
	}

	if len(source.Identifiers) > 0 && target.Identifiers == nil {
		target.Identifiers = map[string]string{}
	}
	for idType, sv := range source.Identifiers {
		tv, exists := target.Identifiers[idType]
		switch {
		case !exists:
			target.Identifiers[idType] = sv
		case tv != sv:
			target.Identifiers[idType+"_alt"] = sv
			conflicts = append(conflicts, FieldConflict{
				Field: "identifiers." + idType, SourceValue: sv, TargetValue: tv,
				Resolution: "target value retained, source value kept under " + idType + "_alt",
			})
		}
	}

	if source.Contact != nil {
		if target.Contact == nil {
			target.Contact = &entity.Contact{}
		}
		mergeContact(source, target, &conflicts)
	}

	if source.DateOfBirth != nil && *source.DateOfBirth != "" {
		if target.DateOfBirth == nil || *target.DateOfBirth == "" {
			dob := *source.DateOfBirth
			target.DateOfBirth = &dob
		} else if *target.DateOfBirth != *source.DateOfBirth {
			conflicts = append(conflicts, FieldConflict{
				Field: "date_of_birth", SourceValue: *source.DateOfBirth,
				TargetValue: *target.DateOfBirth, Resolution: "target value retained",
			})
		}
	}

	target.RiskLevel = entity.HigherRisk(target.RiskLevel, source.RiskLevel)
	if source.RiskScore > target.RiskScore {
		target.RiskScore = source.RiskScore
	}

	if source.Status == entity.StatusActive || target.Status == entity.StatusActive {
		target.Status = entity.StatusActive
	}

	conflictFields := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		conflictFields = append(conflictFields, c.Field)
	}
	target.MergeHistory = append(target.MergeHistory, entity.MergeRecord{
		SourceEntityID: source.EntityID,
		MergedBy:       mc.ResolvedBy,
		MergedAt:       now,
		Confidence:     mc.Confidence,
		Conflicts:      conflictFields,
	})

	return conflicts
}

func mergeContact(source, target *entity.Entity, conflicts *[]FieldConflict) {
	se, te := source.Email(), target.Email()
	switch {
	case se != "" && te == "":
		target.Contact.Email = se
	case se != "" && te != "" && !equalFoldTrim(se, te):
		*conflicts = append(*conflicts, FieldConflict{
			Field: "contact.email", SourceValue: se, TargetValue: te,
			Resolution: "target value retained",
		})
	}

	sp, tp := source.Phone(), target.Phone()
	switch {
	case sp != "" && tp == "":
		target.Contact.Phone = sp
	case sp != "" && tp != "" && normalizePhone(sp) != normalizePhone(tp):
		*conflicts = append(*conflicts, FieldConflict{
			Field: "contact.phone", SourceValue: sp, TargetValue: tp,
			Resolution: "target value retained",
		})
	}

	if source.Contact.Address != nil {
		if target.Contact.Address == nil {
			addr := *source.Contact.Address
			target.Contact.Address = &addr
		} else if addressFieldCount(source.Contact.Address) > addressFieldCount(target.Contact.Address) {
			*conflicts = append(*conflicts, FieldConflict{
				Field: "contact.address", SourceValue: source.AddressLine(),
				TargetValue: target.AddressLine(), Resolution: "more complete source address adopted",
			})
			addr := *source.Contact.Address
			target.Contact.Address = &addr
		}
	}
}

func addressFieldCount(a *entity.Address) int {
	n := 0
	for _, p := range []string{a.Line1, a.City, a.State, a.PostalCode, a.Country} {
		if p != "" {
			n++
		}
	}
	return n
}

// repointLinked re-points every entity previously merged into the source so
// its master becomes the target. Already re-pointed entities are skipped,
// which makes retries converge.
func (m *MergeResolver) repointLinked(ctx context.Context, source, target *entity.Entity, result *MergeResult) error {
	prior := source.LinkedEntities()
	if len(prior) == 0 {
		return nil
	}

	linked, err := m.entities.GetMany(ctx, prior)
	if err != nil {
		return err
	}
	for _, e := range linked {
		if e.Resolution.MasterEntityID == target.EntityID {
			continue
		}
		e.Resolution.MasterEntityID = target.EntityID
		if ok, err := m.entities.Update(ctx, e); err != nil {
			return err
		} else if ok {
			result.UpdatedEntityIDs = append(result.UpdatedEntityIDs, e.EntityID)
		}
	}
	return nil
}

// ensureAuditEdge records the confirmed-same-entity edge between the pair.
// An existing active edge is reused rather than duplicated.
func (m *MergeResolver) ensureAuditEdge(ctx context.Context, source, target *entity.Entity, mc MergeContext, conflicts []FieldConflict) (uuid.UUID, error) {
	existing, err := m.relationships.FindByEntitiesAndType(
		ctx, source.EntityID, target.EntityID, relationship.TypeConfirmedSameEntity)
	if err != nil {
		return uuid.Nil, err
	}
	if len(existing) > 0 {
		return existing[0].ID, nil
	}

	conflictFields := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		conflictFields = append(conflictFields, c.Field)
	}

	rel := &relationship.Relationship{
		SourceEntityID: source.EntityID,
		TargetEntityID: target.EntityID,
		Type:           relationship.TypeConfirmedSameEntity,
		Direction:      relationship.DirectionBidirectional,
		Strength:       mc.Confidence,
		Verified:       true,
		CreatedBy:      mc.ResolvedBy,
		Evidence: map[string]any{
			"matched_attributes": mc.MatchedAttributes,
			"conflicts":          conflictFields,
			"notes":              mc.Notes,
		},
	}
	return m.relationships.Create(ctx, rel)
}

// unionLinked merges linked-entity sets plus extra ids, deduplicated and
// sorted for deterministic storage.
func unionLinked(a, b []string, extra ...string) []string {
	seen := map[string]struct{}{}
	for _, set := range [][]string{a, b, extra} {
		for _, id := range set {
			if id != "" {
				seen[id] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func unionStrings(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(a)+len(b))
	for _, set := range [][]string{a, b} {
		for _, s := range set {
			key := normalizeName(s)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func equalFoldTrim(a, b string) bool {
	return normalizeName(a) == normalizeName(b)
}
