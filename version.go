package scout

// Version is this library's own version, distinct from the core
// agent's version (config.AgentVersion). It is not sent to the agent:
// neither the Register body nor the metadata event includes it.
const Version = "0.1.0"
