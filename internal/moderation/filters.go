package moderation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"request-service/internal/canonical"
	"request-service/internal/live"
	"request-service/internal/model"
)

// Verdict is the outcome of CheckBlocked.
type Verdict struct {
	Blocked bool   `json:"blocked"`
	Reason  string `json:"reason,omitempty"`
}

// Err converts a blocking verdict into a *BlockedError.
func (v Verdict) Err() error {
	if !v.Blocked {
		return nil
	}
	return &BlockedError{Reason: v.Reason}
}

type FilterStore interface {
	BlacklistStore
	WordStore
}

type Filters struct {
	store  FilterStore
	notify live.Notifier
	log    *zap.Logger
}

func NewFilters(store FilterStore, notify live.Notifier, log *zap.Logger) *Filters {
	if notify == nil {
		notify = live.NopNotifier{}
	}
	return &Filters{store: store, notify: notify, log: log}
}

// CheckBlocked tests identity against the blacklist and then text against
// the forbidden words. A blacklist hit wins over a word hit.
func (f *Filters) CheckBlocked(ctx context.Context, identity, text string) (Verdict, error) {
	listed, err := f.isBlacklisted(ctx, identity)
	if err != nil {
		return Verdict{}, err
	}
	if listed {
		return Verdict{Blocked: true, Reason: ReasonBlacklist}, nil
	}

	words, err := f.store.ListWords(ctx)
	if err != nil {
		return Verdict{}, fmt.Errorf("list forbidden words: %w", err)
	}
	if _, ok := MatchesWord(words, text); ok {
		return Verdict{Blocked: true, Reason: ReasonWord}, nil
	}
	return Verdict{}, nil
}

func (f *Filters) isBlacklisted(ctx context.Context, identity string) (bool, error) {
	identity = canonical.Canonicalize(identity)
	_, err := f.store.GetBlacklistEntry(ctx, canonical.Key(identity))
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return false, fmt.Errorf("blacklist lookup: %w", err)
	}

	// entries written under a different key scheme still match by identity
	_, err = f.store.FindBlacklistByIdentity(ctx, identity)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, model.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("blacklist lookup: %w", err)
	}
}

// MatchesWord reports the first forbidden word found in text as a whole
// word, ignoring case.
func MatchesWord(words []model.ForbiddenWord, text string) (string, bool) {
	for _, w := range words {
		if w.Word == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(w.Word) + `\b`)
		if err != nil {
			continue
		}
		if re.MatchString(text) {
			return w.Word, true
		}
	}
	return "", false
}

// NormalizeWord is the storage key of a forbidden word.
func NormalizeWord(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

func (f *Filters) Words(ctx context.Context) ([]model.ForbiddenWord, error) {
	return f.store.ListWords(ctx)
}

// AddWord stores word lowercased and trimmed. Adding an existing word is a
// no-op.
func (f *Filters) AddWord(ctx context.Context, word string) (model.ForbiddenWord, error) {
	w := model.ForbiddenWord{Word: NormalizeWord(word)}
	if w.Word == "" {
		return w, ErrEmptyWord
	}
	if err := f.store.PutWord(ctx, w); err != nil {
		return w, fmt.Errorf("put word: %w", err)
	}
	f.log.Info("forbidden word added", zap.String("word", w.Word))
	f.notify.Notify(ctx, live.ForbiddenWords)
	return w, nil
}

func (f *Filters) RemoveWord(ctx context.Context, word string) error {
	key := NormalizeWord(word)
	if key == "" {
		return ErrEmptyWord
	}
	if err := f.store.DeleteWord(ctx, key); err != nil {
		return fmt.Errorf("delete word: %w", err)
	}
	f.log.Info("forbidden word removed", zap.String("word", key))
	f.notify.Notify(ctx, live.ForbiddenWords)
	return nil
}

func (f *Filters) Blacklist(ctx context.Context) ([]model.BlacklistEntry, error) {
	return f.store.ListBlacklist(ctx)
}

// AddToBlacklist blocks identity for all future submissions. The entry is
// keyed by the storage key of the canonical identity, so blacklisting the
// same track twice overwrites the earlier reason.
func (f *Filters) AddToBlacklist(ctx context.Context, identity, title, reason string) (model.BlacklistEntry, error) {
	identity = canonical.Canonicalize(strings.TrimSpace(identity))
	if identity == "" {
		return model.BlacklistEntry{}, ErrEmptyTrack
	}
	if strings.TrimSpace(reason) == "" {
		reason = DefaultBlacklistReason
	}
	e := model.BlacklistEntry{
		ID:       canonical.Key(identity),
		Identity: identity,
		Title:    title,
		Reason:   reason,
	}
	if err := f.store.PutBlacklistEntry(ctx, e); err != nil {
		return e, fmt.Errorf("put blacklist entry: %w", err)
	}
	f.log.Info("track blacklisted", zap.String("identity", identity), zap.String("reason", reason))
	f.notify.Notify(ctx, live.Blacklist)
	return e, nil
}

func (f *Filters) RemoveFromBlacklist(ctx context.Context, id string) error {
	if err := f.store.DeleteBlacklistEntry(ctx, id); err != nil {
		return fmt.Errorf("delete blacklist entry: %w", err)
	}
	f.log.Info("track unblocked", zap.String("id", id))
	f.notify.Notify(ctx, live.Blacklist)
	return nil
}
