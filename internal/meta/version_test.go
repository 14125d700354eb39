package meta_test

import (
	"runtime"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/epp/internal/meta"
)

var _ = Describe("meta", func() {
	It("reports the Go runtime", func() {
		info := meta.GetInfo()
		Expect(info.GoVersion).To(Equal(runtime.Version()))
		Expect(info.Platform).To(Equal(runtime.GOOS + " " + runtime.GOARCH))
	})

	It("includes the build when stamped", func() {
		info := meta.Info{Version: "1.2.0", Branch: "main", Build: "abc123", Platform: "linux amd64", GoVersion: "go1.21"}
		Expect(info.String()).To(Equal("eppctl 1.2.0 main@abc123 (linux amd64, go1.21)"))

		info.Build = ""
		Expect(info.String()).To(Equal("eppctl 1.2.0 (linux amd64, go1.21)"))
	})
})
