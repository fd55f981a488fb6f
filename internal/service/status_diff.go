package service

import (
	"github.com/campusevents/event-api/internal/dto"
	"github.com/campusevents/event-api/internal/models"
)

// DiffRequestStatuses compares a client's last seen statuses with the current
// requests and reports every request whose status moved. Requests missing
// from previous are reported with an empty Previous, except when previous is
// nil, which marks the initial sync and reports nothing.
func DiffRequestStatuses(previous map[string]models.EventStatus, current []models.EventRequest) []dto.StatusChange {
	changes := make([]dto.StatusChange, 0)
	if previous == nil {
		return changes
	}
	for i := range current {
		req := &current[i]
		before, seen := previous[req.ID]
		if seen && before == req.Status {
			continue
		}
		change := dto.StatusChange{
			RequestID: req.ID,
			Title:     req.Title,
			Previous:  before,
			Current:   req.Status,
		}
		if last := req.LastLog(); last != nil {
			change.Note = last.Note
		}
		changes = append(changes, change)
	}
	return changes
}

// StatusSnapshot captures the statuses to hand back to the client for its next diff.
func StatusSnapshot(requests []models.EventRequest) map[string]models.EventStatus {
	snapshot := make(map[string]models.EventStatus, len(requests))
	for _, req := range requests {
		snapshot[req.ID] = req.Status
	}
	return snapshot
}
