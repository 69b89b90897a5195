package services

import (
	"errors"
	"time"
)

// ErrNotCurated is returned when publish is attempted before a generation
// cycle has produced a draft.
var ErrNotCurated = errors.New("curate the edition before publishing")

// deliveryDelay is the simulated per-member notification latency.
const deliveryDelay = 600 * time.Millisecond

// DeliveryProgress reports one step of the simulated member fan-out.
type DeliveryProgress struct {
	Current    int    `json:"current"`
	Total      int    `json:"total"`
	MemberName string `json:"member_name"`
}

// EditionService drives the draft -> publish -> archive -> reset lifecycle.
type EditionService struct {
	gateway     LoopGateway
	now         func() time.Time
	sleep       func(time.Duration)
	idGenerator func() string
}

func NewEditionService(gateway LoopGateway) *EditionService {
	return &EditionService{
		gateway:     gateway,
		now:         func() time.Time { return time.Now().UTC() },
		sleep:       time.Sleep,
		idGenerator: shortID,
	}
}

// Publish snapshots the loop's draft and working responses into a new
// edition, then resets the working state in a single gateway write. The
// delivery fan-out runs first, strictly sequentially, reporting each member
// to onProgress; it is simulated latency and cannot fail. The commit itself
// is one ReplaceLoop call, so no intermediate state is ever observable.
func (s *EditionService) Publish(loopID string, onProgress func(DeliveryProgress)) (*Edition, error) {
	loop, err := s.gateway.Get(loopID)
	if err != nil {
		return nil, err
	}
	if loop.Draft == nil {
		return nil, ErrNotCurated
	}

	total := len(loop.Members)
	for i, m := range loop.Members {
		if onProgress != nil {
			onProgress(DeliveryProgress{Current: i + 1, Total: total, MemberName: m.Name})
		}
		s.sleep(deliveryDelay)
	}

	publishedAt := s.now()
	edition := Edition{
		ID:            s.idGenerator(),
		IssueNumber:   len(loop.Editions) + 1,
		PublishDate:   publishedAt,
		HeaderImage:   loop.Draft.HeaderImage,
		IntroText:     loop.Draft.IntroText,
		NarrativeText: loop.Draft.NarrativeText,
		Responses:     append([]Response(nil), loop.Responses...),
		CollationMode: loop.CollationMode,
	}

	next := loop.Frequency.Next(publishedAt)

	// Archive is read newest-first, so the new edition goes to the front.
	loop.Editions = append([]Edition{edition}, loop.Editions...)
	loop.Responses = []Response{}
	loop.Draft = nil
	loop.NextSendDate = &next

	if err := s.gateway.ReplaceLoop(*loop); err != nil {
		return nil, err
	}
	return &edition, nil
}

// ListEditions returns the loop's archive, newest first.
func (s *EditionService) ListEditions(loopID string) ([]Edition, error) {
	loop, err := s.gateway.Get(loopID)
	if err != nil {
		return nil, err
	}
	return loop.Editions, nil
}

// GetEdition returns one frozen edition.
func (s *EditionService) GetEdition(loopID, editionID string) (*Edition, error) {
	loop, err := s.gateway.Get(loopID)
	if err != nil {
		return nil, err
	}
	for i := range loop.Editions {
		if loop.Editions[i].ID == editionID {
			return &loop.Editions[i], nil
		}
	}
	return nil, NewNotFoundError("edition not found")
}
