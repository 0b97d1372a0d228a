package io

import (
	"errors"
	"runtime"
	"sync"
)

// FetchAll fetches every unit with a pool of consumers and returns the joined
// errors of the units that failed.
func FetchAll(fetcher Fetcher, basePath string, units []*WorkUnit) error {
	if len(units) == 0 {
		return nil
	}

	// a consumer goroutine per CPU, never more than there is work
	numConsumers := runtime.NumCPU()
	if numConsumers > len(units) {
		numConsumers = len(units)
	}

	workChannel := make(chan *WorkUnit, len(units))
	// every unit can fail at most once
	errorChannel := make(chan error, len(units))

	var waitGroup sync.WaitGroup

	waitGroup.Add(1)
	producer := NewStandardProducer(basePath, units)
	go producer.Produce(workChannel, &waitGroup)

	for i := 0; i < numConsumers; i++ {
		waitGroup.Add(1)
		consumer := NewStandardConsumer(fetcher)
		go consumer.Consume(workChannel, errorChannel, &waitGroup)
	}

	waitGroup.Wait()
	close(errorChannel)

	var errs []error
	for err := range errorChannel {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
