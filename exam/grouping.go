package exam

import "examview-server/models"

// GroupByContext splits flattened questions into contiguous runs that share an
// originating group. A run starts at every question marked first in its group.
// Concatenating the runs' questions gives back the input.
func GroupByContext(questions []models.FlatQuestion) []models.ContextGroup {
	var (
		groups  []models.ContextGroup
		current *models.ContextGroup
	)
	for _, q := range questions {
		switch {
		case q.IsFirstInGroup:
			if current != nil {
				groups = append(groups, *current)
			}
			current = &models.ContextGroup{
				Context:   q.Context,
				Type:      q.Type,
				GroupID:   q.GroupID,
				Questions: []models.FlatQuestion{q},
			}
		case current != nil:
			current.Questions = append(current.Questions, q)
		default:
			// Flatten never produces this; open a context-less group anyway.
			current = &models.ContextGroup{
				Type:      q.Type,
				GroupID:   q.GroupID,
				Questions: []models.FlatQuestion{q},
			}
		}
	}
	if current != nil {
		groups = append(groups, *current)
	}
	return groups
}
