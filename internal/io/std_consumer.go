package io

import (
	"fmt"
	"sync"

	"github.com/ecopia-map/usgs_terrain/internal/mapservice"
	"github.com/golang/glog"
)

// Fetcher is the part of mapservice.MapFetcher a consumer needs
type Fetcher interface {
	GetMap(req mapservice.MapRequest, filename string) int
}

type StandardConsumer struct {
	fetcher Fetcher
}

func NewStandardConsumer(fetcher Fetcher) *StandardConsumer {
	return &StandardConsumer{
		fetcher: fetcher,
	}
}

// Continually consumes WorkUnits submitted to a work channel fetching the corresponding assets.
// Continues working until the work channel is closed; every failed unit is reported on the error
// channel, which must be able to buffer one error per unit.
func (c *StandardConsumer) Consume(workchan chan *WorkUnit, errchan chan error, waitGroup *sync.WaitGroup) {
	defer waitGroup.Done()

	for work := range workchan {
		if err := c.doWork(work); err != nil {
			errchan <- err
		}
	}
}

func (c *StandardConsumer) doWork(workUnit *WorkUnit) error {
	glog.Infof("fetching %s", workUnit.Name)
	if status := c.fetcher.GetMap(workUnit.Request, workUnit.Filename); status != mapservice.StatusOK {
		return fmt.Errorf("fetch of %s returned %d", workUnit.Name, status)
	}
	return nil
}
