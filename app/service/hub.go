package service

// Hub is the single entry point for everything the dashboard or a machine
// caller does with integrations and API keys. Controllers and CLI commands
// depend on the Hub only; the UI never mutates persisted state directly.
type Hub struct {
	Credentials  *CredentialService
	Integrations *IntegrationService
	Orchestrator *Orchestrator
	Activity     *ActivityRecorder
}

func NewHub(
	credentials *CredentialService,
	integrations *IntegrationService,
	orchestrator *Orchestrator,
	activity *ActivityRecorder,
) *Hub {
	return &Hub{
		Credentials:  credentials,
		Integrations: integrations,
		Orchestrator: orchestrator,
		Activity:     activity,
	}
}
