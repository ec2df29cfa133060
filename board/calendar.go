package board

import (
	"context"
	"sort"

	"prism-board/domain"
)

const calendarDate = "2006-01-02"

// Calendar lists card and checklist due dates of the board as dated events, earliest
// first. A non-empty member restricts it to that user's lists and cards.
func (s *Service) Calendar(ctx context.Context, userID, boardID, member string) ([]domain.CalendarEvent, error) {
	snap, err := s.GetBoard(ctx, userID, boardID, member)
	if err != nil {
		return nil, err
	}
	events := []domain.CalendarEvent{}
	for _, l := range snap.Lists {
		for _, c := range l.Cards {
			if c.DueDate != nil {
				events = append(events, domain.CalendarEvent{
					ID:        c.ID,
					Title:     c.Title,
					Date:      c.DueDate.UTC().Format(calendarDate),
					Kind:      domain.CalendarCard,
					CardID:    c.ID,
					CardTitle: c.Title,
					ListTitle: l.Title,
				})
			}
			for _, it := range c.Checklist {
				if it.DueDate == nil {
					continue
				}
				events = append(events, domain.CalendarEvent{
					ID:        it.ID,
					Title:     it.Title,
					Date:      it.DueDate.UTC().Format(calendarDate),
					Kind:      domain.CalendarChecklist,
					CardID:    c.ID,
					CardTitle: c.Title,
					ListTitle: l.Title,
					Completed: it.Completed,
				})
			}
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return events[i].Title < events[j].Title
	})
	return events, nil
}
