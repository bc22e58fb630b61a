package agent

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/tbxark/formpilot/extract"
	"github.com/tbxark/formpilot/record"
	"github.com/tbxark/formpilot/transcript"
)

// Session is the per-conversation state kept between requests.
type Session struct {
	Turns []transcript.Turn `json:"turns"`
	// Record is the latest form data the conversation produced.
	Record *record.Record `json:"record,omitempty"`
}

type SessionStore struct {
	store   Store[*Session]
	trimmer Trimmer
}

func NewSessionStore(core Cache[*Session], trimmer Trimmer) *SessionStore {
	return &SessionStore{
		store:   NewStore(core, "formpilot:session"),
		trimmer: trimmer,
	}
}

func NewMemorySessionStore(trimmer Trimmer) *SessionStore {
	return NewSessionStore(NewMemoryCache[*Session](), trimmer)
}

// Load returns the session for ctx, or an empty one.
func (s *SessionStore) Load(ctx context.Context) (*Session, error) {
	sess, ok, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !ok || sess == nil {
		return &Session{}, nil
	}
	return sess, nil
}

func (s *SessionStore) Save(ctx context.Context, sess *Session) error {
	if s.trimmer != nil {
		sess.Turns = s.trimmer.Trim(sess.Turns)
	}
	return s.store.Set(ctx, sess)
}

func (s *SessionStore) Reset(ctx context.Context) error {
	return s.store.Del(ctx)
}

// Prefill merges an RFC 7396 merge patch into the session's form data and
// records the merged data in the history so the agent sees it. The merged
// data is stored even when it does not validate.
func (s *SessionStore) Prefill(ctx context.Context, mergePatch []byte) (record.ValidationResult, error) {
	sess, err := s.Load(ctx)
	if err != nil {
		return record.ValidationResult{}, err
	}
	current := []byte("{}")
	if sess.Record != nil {
		current, err = sonic.Marshal(sess.Record)
		if err != nil {
			return record.ValidationResult{}, fmt.Errorf("marshal form data failed: %w", err)
		}
	}
	merged, err := jsonpatch.MergePatch(current, mergePatch)
	if err != nil {
		return record.ValidationResult{}, fmt.Errorf("merge form data failed: %w", err)
	}
	var rec record.Record
	if err := sonic.Unmarshal(merged, &rec); err != nil {
		return record.ValidationResult{}, fmt.Errorf("decode merged form data failed: %w", err)
	}
	res := record.Validate(merged)
	if res.OK {
		rec = *res.Record
	}
	text, err := extract.Format(rec)
	if err != nil {
		return record.ValidationResult{}, err
	}

	sess.Record = &rec
	sess.Turns = append(sess.Turns, transcript.Turn{
		ID:    transcript.NewID(),
		Role:  transcript.RoleAssistant,
		Parts: []transcript.Part{transcript.TextPart(text)},
	})
	if err := s.Save(ctx, sess); err != nil {
		return record.ValidationResult{}, err
	}
	return res, nil
}
