// Package gemini adapts Google's generative AI service to the generation
// layer.
//
// It is an infrastructure adapter: the job controller and the media
// service depend on small interfaces (job.VideoBackend and friends), and
// this package fulfils them with google.golang.org/genai.
//
// Key components:
//
// 1. ClientFactory:
//   - Builds and caches one genai client per credential
//   - Paces outbound calls per credential with golang.org/x/time/rate
//
// 2. Service:
//   - SubmitVideo, CheckVideo and FetchVideo for long-running video jobs
//   - GenerateText and GenerateImage for single-shot calls
//   - Every method is exactly one attempt with one credential; retry and
//     rotation belong to generation.Executor
//
// 3. Classification:
//   - Translates genai.APIError and operation errors into
//     *generation.Error values (auth, quota, transient, content policy,
//     empty result, invalid request)
//   - ClassifyPolicy decides whether throttling rotates the credential
package gemini
