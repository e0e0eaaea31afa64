package utils

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestRunInParallel(t *testing.T) {
	var total int64
	fs := []SimpleFunc{}
	for i := 1; i <= 4; i++ {
		i := int64(i)
		fs = append(fs, func(ctx context.Context) error {
			atomic.AddInt64(&total, i)
			return nil
		})
	}

	_, err := RunInParallel(context.Background(), fs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, total, test.ShouldEqual, int64(10))
}

func TestRunInParallelError(t *testing.T) {
	fs := []SimpleFunc{
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return errors.New("whoops") },
	}

	_, err := RunInParallel(context.Background(), fs)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "whoops")
}

func TestRunInParallelPanic(t *testing.T) {
	fs := []SimpleFunc{
		func(ctx context.Context) error { panic("eek") },
	}

	_, err := RunInParallel(context.Background(), fs)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "eek")
}

func TestRunInParallelCancelsOnError(t *testing.T) {
	fs := []SimpleFunc{
		func(ctx context.Context) error { return errors.New("first") },
		func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		},
	}

	_, err := RunInParallel(context.Background(), fs)
	test.That(t, err, test.ShouldNotBeNil)
}
