package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/cinemuse/internal/db"
)

// HSet sets hash fields.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	cmd := s.b().Hset().Key(key).FieldValue()
	for k, v := range fields {
		cmd = cmd.FieldValue(k, v)
	}
	if err := s.do(ctx, cmd.Build()).Error(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	return nil
}

// HSetMultiTx stores multiple hashes inside MULTI/EXEC on a dedicated connection.
// A failed EXEC discards the whole group.
func (s *Store) HSetMultiTx(ctx context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}

	return s.client.Dedicated(func(c rueidis.DedicatedClient) error {
		cmds := make([]rueidis.Completed, 0, len(items)+2)
		cmds = append(cmds, c.B().Multi().Build())
		for _, item := range items {
			cmd := c.B().Hset().Key(item.Key).FieldValue()
			for k, v := range item.Fields {
				cmd = cmd.FieldValue(k, v)
			}
			cmds = append(cmds, cmd.Build())
		}
		cmds = append(cmds, c.B().Exec().Build())

		results := c.DoMulti(ctx, cmds...)
		for i, res := range results {
			if err := res.Error(); err != nil {
				op := db.OpHSet
				if i == len(results)-1 {
					op = db.OpExec
				}
				return &db.Error{Op: op, Err: err}
			}
		}
		return nil
	})
}

// Del deletes a key.
func (s *Store) Del(ctx context.Context, key string) error {
	cmd := s.b().Del().Key(key).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

// DelMulti deletes several keys in one command.
func (s *Store) DelMulti(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	cmd := s.b().Del().Key(keys...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}
