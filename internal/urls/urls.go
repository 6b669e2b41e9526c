package urls

// Documentation URLs for guides and troubleshooting

// AdaxAPI is Adax's page on the client API, including how to generate the
// API credential in the Adax app.
const AdaxAPI = "https://adax.no/om-adax/api-development/"

// Documentation is the project documentation site
const Documentation = "https://muurk.github.io/adax/"

// Bridge describes the HTTP, WebSocket and metrics endpoints of `adax serve`.
const Bridge = "https://muurk.github.io/adax/bridge/"

// TroubleshootingGuide provides solutions to common authentication and
// rate limit issues.
const TroubleshootingGuide = "https://muurk.github.io/adax/troubleshooting/"
