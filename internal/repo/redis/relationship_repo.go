package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/osavenko/matcha/backend/internal/domain/model"
	"github.com/osavenko/matcha/backend/internal/store"
)

const (
	profilePrefix   = "profile:"
	profileIndexKey = "profiles:index"

	scanPageSize = 100
)

// RelationshipRepo implements store.Relationships on redis. Each user document
// is a hash plus one native redis set per interest-set field, which is what
// gives the engine its single-field atomic add/remove. BatchWrite uses a plain
// pipeline: operations land independently and a partial failure leaves the
// earlier writes applied.
type RelationshipRepo struct {
	client *goredis.Client
}

func NewRelationshipRepo(client *goredis.Client) *RelationshipRepo {
	return &RelationshipRepo{client: client}
}

func profileKey(id string) string {
	return profilePrefix + id
}

func setKey(id, field string) string {
	return profilePrefix + id + ":set:" + field
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, store.ErrUnavailable, err)
}

var setFields = []string{
	store.FieldLikedUsers,
	store.FieldSuperLikedUsers,
	store.FieldLikers,
	store.FieldSuperLikers,
	store.FieldLikeMatches,
	store.FieldSuperLikeMatches,
	store.FieldBlockers,
	store.FieldBlocked,
}

func (r *RelationshipRepo) SaveProfile(ctx context.Context, profile model.UserProfile) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(profile.ID) == "" {
		return fmt.Errorf("profile id is required")
	}

	fields := map[string]any{
		"display_name":    profile.DisplayName,
		"gender":          profile.Gender,
		"looking_for":     profile.Prefs.LookingFor,
		"age_min":         profile.Prefs.AgeMin,
		"age_max":         profile.Prefs.AgeMax,
		"max_distance_km": profile.Prefs.MaxDistanceKM,
		"chat_id":         profile.ChatID,
	}
	if profile.Birthdate != nil {
		fields["birthdate"] = profile.Birthdate.UTC().Format("2006-01-02")
	}
	if profile.Lat != nil {
		fields["lat"] = strconv.FormatFloat(*profile.Lat, 'f', -1, 64)
	}
	if profile.Lon != nil {
		fields["lon"] = strconv.FormatFloat(*profile.Lon, 'f', -1, 64)
	}
	if profile.LastDiscoverRefresh != nil {
		fields[store.FieldLastDiscoverRefresh] = profile.LastDiscoverRefresh.UTC().UnixMilli()
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, profileKey(profile.ID), fields)
	pipe.SAdd(ctx, profileIndexKey, profile.ID)
	for _, field := range setFields {
		for _, member := range profileSet(profile, field) {
			pipe.SAdd(ctx, setKey(profile.ID, field), member)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable("save profile", err)
	}
	return nil
}

func (r *RelationshipRepo) GetProfile(ctx context.Context, id string) (model.UserProfile, error) {
	if r.client == nil {
		return model.UserProfile{}, fmt.Errorf("redis client is nil")
	}

	known, err := r.client.SIsMember(ctx, profileIndexKey, id).Result()
	if err != nil {
		return model.UserProfile{}, unavailable("check profile index", err)
	}
	if !known {
		return model.UserProfile{}, store.ErrNotFound
	}

	values, err := r.client.HGetAll(ctx, profileKey(id)).Result()
	if err != nil {
		return model.UserProfile{}, unavailable("get profile hash", err)
	}

	profile, err := parseProfile(id, values)
	if err != nil {
		return model.UserProfile{}, err
	}

	pipe := r.client.Pipeline()
	cmds := make(map[string]*goredis.StringSliceCmd, len(setFields))
	for _, field := range setFields {
		cmds[field] = pipe.SMembers(ctx, setKey(id, field))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return model.UserProfile{}, unavailable("get profile sets", err)
	}

	profile.LikedUsers = cmds[store.FieldLikedUsers].Val()
	profile.SuperLikedUsers = cmds[store.FieldSuperLikedUsers].Val()
	profile.Likers = cmds[store.FieldLikers].Val()
	profile.SuperLikers = cmds[store.FieldSuperLikers].Val()
	profile.LikeMatches = cmds[store.FieldLikeMatches].Val()
	profile.SuperLikeMatches = cmds[store.FieldSuperLikeMatches].Val()
	profile.Blockers = cmds[store.FieldBlockers].Val()
	profile.Blocked = cmds[store.FieldBlocked].Val()

	return profile, nil
}

func (r *RelationshipRepo) GetAllProfiles(ctx context.Context) (store.ProfileIterator, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &profileIterator{repo: r}, nil
}

func (r *RelationshipRepo) AddToSet(ctx context.Context, docID, field, value string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.SAdd(ctx, setKey(docID, field), value).Err(); err != nil {
		return unavailable("add to set "+field, err)
	}
	return nil
}

func (r *RelationshipRepo) RemoveFromSet(ctx context.Context, docID, field, value string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.SRem(ctx, setKey(docID, field), value).Err(); err != nil {
		return unavailable("remove from set "+field, err)
	}
	return nil
}

func (r *RelationshipRepo) SetFields(ctx context.Context, docID string, fields map[string]any) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if len(fields) == 0 {
		return nil
	}
	if err := r.client.HSet(ctx, profileKey(docID), encodeFields(fields)).Err(); err != nil {
		return unavailable("set fields", err)
	}
	return nil
}

func (r *RelationshipRepo) BatchWrite(ctx context.Context, ops []store.Operation) ([]store.OpResult, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if len(ops) == 0 {
		return nil, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]goredis.Cmder, 0, len(ops))
	for _, op := range ops {
		switch op.Kind {
		case store.OpAddToSet:
			cmds = append(cmds, pipe.SAdd(ctx, setKey(op.DocID, op.Field), op.Value))
		case store.OpRemoveFromSet:
			cmds = append(cmds, pipe.SRem(ctx, setKey(op.DocID, op.Field), op.Value))
		case store.OpSetFields:
			cmds = append(cmds, pipe.HSet(ctx, profileKey(op.DocID), encodeFields(op.Fields)))
		default:
			return nil, fmt.Errorf("unsupported batch operation kind %d", op.Kind)
		}
	}

	// Exec returns the first command error; per-op results below carry the
	// rest, so the batch itself only fails on transport errors.
	if _, err := pipe.Exec(ctx); err != nil && err != goredis.Nil {
		allFailed := true
		for _, cmd := range cmds {
			if cmd.Err() == nil {
				allFailed = false
				break
			}
		}
		if allFailed {
			return nil, unavailable("batch write", err)
		}
	}

	results := make([]store.OpResult, len(cmds))
	for i, cmd := range cmds {
		if err := cmd.Err(); err != nil && err != goredis.Nil {
			results[i] = store.OpResult{Err: unavailable("batch op", err)}
		}
	}
	return results, nil
}

type profileIterator struct {
	repo     *RelationshipRepo
	cursor   uint64
	buffer   []string
	done     bool
	started  bool
	finished bool
}

func (it *profileIterator) Next(ctx context.Context) (model.UserProfile, bool, error) {
	for {
		if len(it.buffer) == 0 {
			if it.done && it.started {
				it.finished = true
				return model.UserProfile{}, false, nil
			}
			ids, cursor, err := it.repo.client.SScan(ctx, profileIndexKey, it.cursor, "", scanPageSize).Result()
			if err != nil {
				return model.UserProfile{}, false, unavailable("scan profiles", err)
			}
			it.started = true
			it.cursor = cursor
			it.buffer = ids
			if cursor == 0 {
				it.done = true
			}
			if len(ids) == 0 {
				if it.done {
					it.finished = true
					return model.UserProfile{}, false, nil
				}
				continue
			}
		}

		id := it.buffer[0]
		it.buffer = it.buffer[1:]

		profile, err := it.repo.GetProfile(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			// Deleted between scan and fetch.
			continue
		}
		if err != nil {
			return model.UserProfile{}, false, err
		}
		return profile, true, nil
	}
}

func (it *profileIterator) Close() error {
	it.finished = true
	return nil
}

func parseProfile(id string, values map[string]string) (model.UserProfile, error) {
	profile := model.UserProfile{
		ID:          id,
		DisplayName: values["display_name"],
		Gender:      values["gender"],
		Prefs: model.Preferences{
			LookingFor: values["looking_for"],
		},
	}

	if v := values["age_min"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return model.UserProfile{}, fmt.Errorf("parse age_min for %s: %w", id, err)
		}
		profile.Prefs.AgeMin = n
	}
	if v := values["age_max"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return model.UserProfile{}, fmt.Errorf("parse age_max for %s: %w", id, err)
		}
		profile.Prefs.AgeMax = n
	}
	if v := values["max_distance_km"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return model.UserProfile{}, fmt.Errorf("parse max_distance_km for %s: %w", id, err)
		}
		profile.Prefs.MaxDistanceKM = n
	}
	if v := values["chat_id"]; v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return model.UserProfile{}, fmt.Errorf("parse chat_id for %s: %w", id, err)
		}
		profile.ChatID = n
	}
	if v := values["birthdate"]; v != "" {
		bd, err := time.ParseInLocation("2006-01-02", v, time.UTC)
		if err != nil {
			return model.UserProfile{}, fmt.Errorf("parse birthdate for %s: %w", id, err)
		}
		profile.Birthdate = &bd
	}
	if v := values["lat"]; v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return model.UserProfile{}, fmt.Errorf("parse lat for %s: %w", id, err)
		}
		profile.Lat = &f
	}
	if v := values["lon"]; v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return model.UserProfile{}, fmt.Errorf("parse lon for %s: %w", id, err)
		}
		profile.Lon = &f
	}
	if v := values[store.FieldLastDiscoverRefresh]; v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return model.UserProfile{}, fmt.Errorf("parse lastDiscoverRefresh for %s: %w", id, err)
		}
		at := time.UnixMilli(ms).UTC()
		profile.LastDiscoverRefresh = &at
	}

	return profile, nil
}

func encodeFields(fields map[string]any) map[string]any {
	encoded := make(map[string]any, len(fields))
	for key, value := range fields {
		switch v := value.(type) {
		case time.Time:
			encoded[key] = v.UTC().UnixMilli()
		case *time.Time:
			if v != nil {
				encoded[key] = v.UTC().UnixMilli()
			}
		default:
			encoded[key] = value
		}
	}
	return encoded
}

func profileSet(profile model.UserProfile, field string) []string {
	switch field {
	case store.FieldLikedUsers:
		return profile.LikedUsers
	case store.FieldSuperLikedUsers:
		return profile.SuperLikedUsers
	case store.FieldLikers:
		return profile.Likers
	case store.FieldSuperLikers:
		return profile.SuperLikers
	case store.FieldLikeMatches:
		return profile.LikeMatches
	case store.FieldSuperLikeMatches:
		return profile.SuperLikeMatches
	case store.FieldBlockers:
		return profile.Blockers
	case store.FieldBlocked:
		return profile.Blocked
	default:
		return nil
	}
}
