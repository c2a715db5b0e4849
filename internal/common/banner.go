package common

import (
	"fmt"

	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner
func PrintBanner(version string) {
	b := banner.New()
	b.PrintTopLine()
	b.PrintCenteredText(fmt.Sprintf("Ally Bridge %s", version))
	b.PrintBottomLine()
}
