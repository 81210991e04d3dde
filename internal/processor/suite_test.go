// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package processor

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestProcessorOrchestration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "ProcessorCore Orchestration Suite")
}
