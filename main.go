package main

import (
	cmd "github.com/xynehq/xyne-report/cmd/xyne-report"
	"github.com/xynehq/xyne-report/data"
	"github.com/xynehq/xyne-report/internal/assets"
)

func main() {
	assets.UpdateData(&data.FS)
	cmd.Execute()
}
