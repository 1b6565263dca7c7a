package entity

import "github.com/garyjia/recruitment-engine/internal/domain/workflow"

// Document is a record whose lifecycle is driven by a workflow state machine
type Document interface {
	Record
	GetStatus() workflow.State
	SetStatus(s workflow.State)
	// OwnerCaseID returns the recruitment case the document belongs to
	OwnerCaseID() int64
}

func (t *TOR) GetStatus() workflow.State  { return t.Status }
func (t *TOR) SetStatus(s workflow.State) { t.Status = s }
func (t *TOR) OwnerCaseID() int64         { return t.CaseID }

func (s *SRF) GetStatus() workflow.State   { return s.Status }
func (s *SRF) SetStatus(st workflow.State) { s.Status = st }
func (s *SRF) OwnerCaseID() int64          { return s.CaseID }

func (r *SelectionReport) GetStatus() workflow.State  { return r.Status }
func (r *SelectionReport) SetStatus(s workflow.State) { r.Status = s }
func (r *SelectionReport) OwnerCaseID() int64         { return r.CaseID }

func (o *Offer) GetStatus() workflow.State  { return o.Status }
func (o *Offer) SetStatus(s workflow.State) { o.Status = s }
func (o *Offer) OwnerCaseID() int64         { return o.CaseID }

func (s *SanctionCheck) GetStatus() workflow.State   { return s.Status }
func (s *SanctionCheck) SetStatus(st workflow.State) { s.Status = st }
func (s *SanctionCheck) OwnerCaseID() int64          { return s.CaseID }

func (c *Contract) GetStatus() workflow.State  { return c.Status }
func (c *Contract) SetStatus(s workflow.State) { c.Status = s }
func (c *Contract) OwnerCaseID() int64         { return c.CaseID }
