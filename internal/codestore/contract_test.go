package codestore

import (
	"context"
	"sync"
	"time"

	"go-shortlink/internal/domain"

	"github.com/stretchr/testify/suite"
)

// storeContractSuite exercises the Store contract. Implementations embed it and set newStore.
type storeContractSuite struct {
	suite.Suite
	ctx      context.Context
	newStore func() Store
	sut      Store
}

func (s *storeContractSuite) SetupTest() {
	s.ctx = context.Background()
	s.sut = s.newStore()
}

func (s *storeContractSuite) TestGet_Missing_ReturnsNotFound() {
	// Act
	_, err := s.sut.Get(s.ctx, "missing1")

	// Assert
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *storeContractSuite) TestSetWithExpiry_ThenGet() {
	// Arrange
	err := s.sut.SetWithExpiry(s.ctx, "abc123", "https://example.org/a", 0)
	s.Require().NoError(err)

	// Act
	got, err := s.sut.Get(s.ctx, "abc123")

	// Assert
	s.Require().NoError(err)
	s.Equal("https://example.org/a", got)
}

func (s *storeContractSuite) TestExists() {
	// Arrange
	s.Require().NoError(s.sut.SetWithExpiry(s.ctx, "exists1", "https://example.org", 0))

	// Act
	present, err1 := s.sut.Exists(s.ctx, "exists1")
	absent, err2 := s.sut.Exists(s.ctx, "exists2")

	// Assert
	s.NoError(err1)
	s.NoError(err2)
	s.True(present)
	s.False(absent)
}

func (s *storeContractSuite) TestSetIfAbsent_SecondWriteLoses() {
	// Act
	first, err1 := s.sut.SetIfAbsent(s.ctx, "custom1", "https://first.example", 0)
	second, err2 := s.sut.SetIfAbsent(s.ctx, "custom1", "https://second.example", 0)

	// Assert
	s.NoError(err1)
	s.NoError(err2)
	s.True(first)
	s.False(second)
	got, err := s.sut.Get(s.ctx, "custom1")
	s.Require().NoError(err)
	s.Equal("https://first.example", got)
}

func (s *storeContractSuite) TestSetIfAbsent_ConcurrentWritersExactlyOneWins() {
	// Arrange
	const writers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	// Act
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.sut.SetIfAbsent(s.ctx, "race01", "https://example.org", 0)
			s.NoError(err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Assert
	s.Equal(1, wins)
}

func (s *storeContractSuite) TestDelete_IsIdempotent() {
	// Arrange
	s.Require().NoError(s.sut.SetWithExpiry(s.ctx, "gone01", "https://example.org", 0))

	// Act
	first, err1 := s.sut.Delete(s.ctx, "gone01")
	second, err2 := s.sut.Delete(s.ctx, "gone01")

	// Assert
	s.NoError(err1)
	s.NoError(err2)
	s.Equal(int64(1), first)
	s.Equal(int64(0), second)
	_, err := s.sut.Get(s.ctx, "gone01")
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *storeContractSuite) TestPing() {
	s.NoError(s.sut.Ping(s.ctx))
}

func (s *storeContractSuite) TestSetWithExpiry_Expires() {
	// Arrange
	s.Require().NoError(s.sut.SetWithExpiry(s.ctx, "ttl001", "https://example.org", time.Second))

	// Act
	s.Eventually(func() bool {
		_, err := s.sut.Get(s.ctx, "ttl001")
		return err != nil
	}, 5*time.Second, 100*time.Millisecond)

	// Assert
	_, err := s.sut.Get(s.ctx, "ttl001")
	s.ErrorIs(err, domain.ErrNotFound)
}
