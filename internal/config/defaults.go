package config

// DefaultConfigYAML is written by `triad init`.
const DefaultConfigYAML = `# triad configuration
#
# Values not specified here use built-in defaults. Every key can be
# overridden with an environment variable, e.g. TRIAD_LOG_LEVEL=debug.
# API keys are read from GOOGLE_API_KEY and SERPER_API_KEY (or a .env file).

log:
  level: info
  # auto | text | json
  format: auto

orchestrator:
  # transcript: every specialist answers in turn
  # best: only the most confident answer is returned
  mode: transcript
  user_id: user_001

classifier:
  # keyword | model
  mode: keyword
  timeout: 15s

llm:
  # genai: Gemini API (needs GOOGLE_API_KEY)
  # cli: pipes prompts to an agent CLI on stdin
  backend: genai
  model: gemini-2.5-flash
  temperature: 0.7
  path: gemini
  args: []
  timeout: 60s

search:
  # serper | none
  provider: serper
  endpoint: https://google.serper.dev/search
  timeout: 10s
  max_results: 3
  retries: 2

memory:
  # none | buffer | qdrant
  backend: buffer
  window: 10
  top_k: 3
  timeout: 10s
  qdrant:
    host: localhost
    port: 6334
    use_tls: false
    collection: agent_memories
  embedding:
    model: text-embedding-004
    dimension: 768

session:
  # sqlite | json | none
  backend: sqlite
  path: .triad/sessions.db

server:
  host: 127.0.0.1
  port: 8080
  cors_origins:
    - http://localhost:5173
`
