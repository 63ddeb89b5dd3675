package main

import (
	"context"
)

func (cli *commandLine) reconcile(ctx context.Context) error {
	res, err := cli.jobs.Reconcile(ctx)
	if err != nil {
		return err
	}
	cli.printf("applied: %d, failed: %d, aggregated: %d\n", res.Applied, res.Failed, res.Aggregated)
	return nil
}

func (cli *commandLine) expire(ctx context.Context) error {
	res, err := cli.jobs.SubmitExpired(ctx)
	if err != nil {
		return err
	}
	cli.printf("submitted: %d, failed: %d\n", res.Submitted, res.Failed)
	return nil
}
