package kv

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"warden/pkg/platform/sentinel"
)

// StoreContractSuite pins the behaviour of a Store. It runs against miniredis in
// unit tests and against a real Redis in integration tests.
type StoreContractSuite struct {
	suite.Suite
	newStore func(t *testing.T) Store
	store    Store
}

func (s *StoreContractSuite) SetupTest() {
	s.store = s.newStore(s.T())
}

func (s *StoreContractSuite) TestGetMissingIsNotFound() {
	ctx := context.Background()
	_, err := s.store.Get(ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, _, err = s.store.GetWithTTL(ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreContractSuite) TestSetGetWithTTL() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, "plain", "a", 0))
	s.Require().NoError(s.store.Set(ctx, "expiring", "b", time.Minute))

	val, ttl, err := s.store.GetWithTTL(ctx, "plain")
	s.Require().NoError(err)
	s.Equal("a", val)
	s.Zero(ttl)

	val, ttl, err = s.store.GetWithTTL(ctx, "expiring")
	s.Require().NoError(err)
	s.Equal("b", val)
	s.Greater(ttl, 50*time.Second)
	s.LessOrEqual(ttl, time.Minute)
}

func (s *StoreContractSuite) TestExistsAndDelete() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, "a", "1", 0))
	s.Require().NoError(s.store.SetAdd(ctx, "b", "x"))

	ok, err := s.store.Exists(ctx, "a")
	s.Require().NoError(err)
	s.True(ok)

	s.Require().NoError(s.store.Delete(ctx, "a", "b", "never-existed"))

	for _, key := range []string{"a", "b"} {
		ok, err := s.store.Exists(ctx, key)
		s.Require().NoError(err)
		s.False(ok, key)
	}
	s.NoError(s.store.Delete(ctx))
}

func (s *StoreContractSuite) TestSetOperationsAreIdempotent() {
	ctx := context.Background()
	s.Require().NoError(s.store.SetAdd(ctx, "set", "read", "write"))
	s.Require().NoError(s.store.SetAdd(ctx, "set", "read"))

	members, err := s.store.SetMembers(ctx, "set")
	s.Require().NoError(err)
	sort.Strings(members)
	s.Equal([]string{"read", "write"}, members)

	s.Require().NoError(s.store.SetRemove(ctx, "set", "write", "absent"))
	s.Require().NoError(s.store.SetRemove(ctx, "set", "write"))

	ok, err := s.store.SetIsMember(ctx, "set", "write")
	s.Require().NoError(err)
	s.False(ok)
	ok, err = s.store.SetIsMember(ctx, "set", "read")
	s.Require().NoError(err)
	s.True(ok)

	members, err = s.store.SetMembers(ctx, "no-such-set")
	s.Require().NoError(err)
	s.Empty(members)
}

func (s *StoreContractSuite) TestListPreservesAppendOrder() {
	ctx := context.Background()
	s.Require().NoError(s.store.ListAppend(ctx, "list", "1", "2"))
	s.Require().NoError(s.store.ListAppend(ctx, "list", "3"))

	values, err := s.store.ListRange(ctx, "list")
	s.Require().NoError(err)
	s.Equal([]string{"1", "2", "3"}, values)

	values, err = s.store.ListRange(ctx, "empty")
	s.Require().NoError(err)
	s.Empty(values)
}

func (s *StoreContractSuite) TestLogRanges() {
	ctx := context.Background()
	var ids []string
	for _, n := range []string{"1", "2", "3", "4"} {
		id, err := s.store.LogAppend(ctx, "log", map[string]string{"n": n})
		s.Require().NoError(err)
		ids = append(ids, id)
	}

	oldest, err := s.store.LogRange(ctx, "log", "", 2)
	s.Require().NoError(err)
	s.Require().Len(oldest, 2)
	s.Equal(ids[0], oldest[0].ID)
	s.Equal("2", oldest[1].Fields["n"])

	rest, err := s.store.LogRange(ctx, "log", ids[1], 0)
	s.Require().NoError(err)
	s.Require().Len(rest, 2)
	s.Equal(ids[2], rest[0].ID)
	s.Equal(ids[3], rest[1].ID)

	none, err := s.store.LogRange(ctx, "log", ids[3], 10)
	s.Require().NoError(err)
	s.Empty(none)

	newest, err := s.store.LogRevRange(ctx, "log", 3)
	s.Require().NoError(err)
	s.Require().Len(newest, 3)
	s.Equal("4", newest[0].Fields["n"])
	s.Equal("2", newest[2].Fields["n"])

	empty, err := s.store.LogRevRange(ctx, "no-such-log", 5)
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *StoreContractSuite) TestCardinalitySmallSetsAreExact() {
	ctx := context.Background()
	s.Require().NoError(s.store.CardinalityAdd(ctx, "hll", time.Hour, "alice", "bob"))
	s.Require().NoError(s.store.CardinalityAdd(ctx, "hll", time.Hour, "alice", "carol"))

	n, err := s.store.CardinalityCount(ctx, "hll")
	s.Require().NoError(err)
	s.Equal(int64(3), n)

	n, err = s.store.CardinalityCount(ctx, "no-such-hll")
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *StoreContractSuite) TestWrongTypeIsMalformed() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, "str", "v", 0))
	s.Require().NoError(s.store.SetAdd(ctx, "set", "m"))

	s.ErrorIs(s.store.SetAdd(ctx, "str", "m"), sentinel.ErrMalformed)
	s.ErrorIs(s.store.ListAppend(ctx, "str", "m"), sentinel.ErrMalformed)
	_, err := s.store.LogAppend(ctx, "str", map[string]string{"a": "b"})
	s.ErrorIs(err, sentinel.ErrMalformed)
	s.ErrorIs(s.store.CardinalityAdd(ctx, "set", time.Hour, "m"), sentinel.ErrMalformed)

	_, err = s.store.SetMembers(ctx, "str")
	s.ErrorIs(err, sentinel.ErrMalformed)
	_, err = s.store.SetIsMember(ctx, "str", "m")
	s.ErrorIs(err, sentinel.ErrMalformed)
	_, err = s.store.ListRange(ctx, "str")
	s.ErrorIs(err, sentinel.ErrMalformed)
	_, err = s.store.LogRange(ctx, "str", "", 10)
	s.ErrorIs(err, sentinel.ErrMalformed)
	_, err = s.store.LogRevRange(ctx, "str", 10)
	s.ErrorIs(err, sentinel.ErrMalformed)
	_, err = s.store.CardinalityCount(ctx, "set")
	s.ErrorIs(err, sentinel.ErrMalformed)
	_, err = s.store.Get(ctx, "set")
	s.ErrorIs(err, sentinel.ErrMalformed)
	_, _, err = s.store.GetWithTTL(ctx, "set")
	s.ErrorIs(err, sentinel.ErrMalformed)
}

func (s *StoreContractSuite) TestPing() {
	s.NoError(s.store.Ping(context.Background()))
}
