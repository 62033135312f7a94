package store

import (
	"context"
	"encoding/json"

	"github.com/rushteam/shoprec/core"
)

// ProfileAdapter 是基于 core.KeyValueStore 的用户画像适配器，实现 core.ProfileStore。
//
// key 布局：
//   画像文档：  {KeyPrefix}:profile:{userID}  （JSON）
type ProfileAdapter struct {
	store core.KeyValueStore

	// KeyPrefix 是存储 key 的前缀，默认 "user"
	KeyPrefix string
}

// NewProfileAdapter 创建一个基于 KeyValueStore 的画像适配器。
func NewProfileAdapter(s core.KeyValueStore, keyPrefix string) *ProfileAdapter {
	if keyPrefix == "" {
		keyPrefix = "user"
	}
	return &ProfileAdapter{
		store:     s,
		KeyPrefix: keyPrefix,
	}
}

func (a *ProfileAdapter) profileKey(userID string) string { return a.KeyPrefix + ":profile:" + userID }

func (a *ProfileAdapter) GetProfile(ctx context.Context, userID string) (*core.UserProfile, error) {
	data, err := a.store.Get(ctx, a.profileKey(userID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, core.ErrUserNotFound
		}
		return nil, err
	}

	var p core.UserProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (a *ProfileAdapter) PutProfile(ctx context.Context, p *core.UserProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, a.profileKey(p.UserID), data)
}

var _ core.ProfileStore = (*ProfileAdapter)(nil)
