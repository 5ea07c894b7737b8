package store

import (
	"github.com/nvandessel/pamem/internal/models"
)

// ToNode converts a record into a fresh resident node with zero activation.
func (r Record) ToNode() *models.Node {
	n := models.NewNode(r.ID, r.Label, r.Tags...)
	if r.Type != "" {
		n.Type = r.Type
	}
	if r.Cores > 0 {
		n.Cores = r.Cores
	}
	if r.Weight > 0 {
		n.Weight = r.Weight
	}
	n.SetBaseActivation(r.BaseActivation)
	return n
}

// ToLink converts a record into a fresh resident link.
func (l LinkRecord) ToLink() *models.Link {
	link := models.NewLink(l.Source, l.Sink, l.Category)
	if l.Type != "" {
		link.Type = l.Type
	}
	if l.Incentive != nil {
		link.SetIncentive(*l.Incentive)
	}
	return link
}

// RecordFromNode converts a resident node back into a record.
func RecordFromNode(n *models.Node) Record {
	return Record{
		ID:     n.ID,
		Label:  n.Label,
		Type:   n.Type,
		Tags:   n.Tags.Slice(),
		Cores:  n.Cores,
		Weight: n.Weight,
	}
}

// RecordFromLink converts a resident link back into a record.
func RecordFromLink(l *models.Link) LinkRecord {
	rec := LinkRecord{
		Source:   l.Key.Source,
		Sink:     l.Key.Sink,
		Category: l.Key.Category,
		Type:     l.Type,
	}
	if v, ok := l.Incentive(); ok {
		rec.Incentive = &v
	}
	return rec
}
