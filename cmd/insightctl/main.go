package main

import "github.com/Tributary-ai-services/aether-insights/internal/cli"

func main() {
	cli.Execute()
}
