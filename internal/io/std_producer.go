package io

import (
	"path/filepath"
	"sync"
)

type StandardProducer struct {
	basePath string
	units    []*WorkUnit
}

func NewStandardProducer(basePath string, units []*WorkUnit) *StandardProducer {
	return &StandardProducer{
		basePath: basePath,
		units:    units,
	}
}

// Submits every WorkUnit to the provided work channel, resolving relative output
// names against the base path. Closes the channel when all work is submitted.
func (p *StandardProducer) Produce(work chan *WorkUnit, wg *sync.WaitGroup) {
	for _, unit := range p.units {
		if !filepath.IsAbs(unit.Filename) {
			resolved := *unit
			resolved.Filename = filepath.Join(p.basePath, unit.Filename)
			unit = &resolved
		}
		work <- unit
	}
	close(work)
	wg.Done()
}
