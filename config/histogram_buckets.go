package config

import (
	"go.opentelemetry.io/otel/metric"
)

var (
	// TimeBucketsOpt covers from fast cached completions to long
	// streamed generations.
	TimeBucketsOpt = metric.WithExplicitBucketBoundaries(
		0.050, 0.100, 0.250, 0.500,
		0.750, 1.000, 1.500, 2.000,
		3.000, 5.000, 7.500, 10.000,
		15.000, 30.000, 60.000, 120.000)

	// SizeBucketsOpt covers typical LLM payload sizes.
	SizeBucketsOpt = metric.WithExplicitBucketBoundaries(
		256, 1024, 4*1024, 16*1024,
		64*1024, 256*1024, 1024*1024, // <- a whole context window serialized
		4*1024*1024, 16*1024*1024,
	)
)
