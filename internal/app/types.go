package app

import "w3plex/internal/types"

type ValidateRequest struct {
	ConfigPath string
}

type ValidateResult struct {
	Keys        []string
	Collections map[types.Collection]int
}

type InspectRequest struct {
	ConfigPath string
}

type InspectCollection struct {
	Name     types.Collection
	Entities []string
}

type InspectResult struct {
	Keys        []string
	Collections []InspectCollection
}

type RunRequest struct {
	ConfigPath  string
	Application string
	Args        []string
	Kwargs      map[string]string
}

type RunResult struct {
	Application string
	Actions     []string
}

type AppsRequest struct {
	ConfigPath string
}

type AppSummary struct {
	Name        string
	Constructor string
	Actions     []string
}

type AppsResult struct {
	Applications []AppSummary
}

type InitRequest struct {
	ConfigPath string
	Force      bool
}

type InitResult struct {
	Written []string
}
