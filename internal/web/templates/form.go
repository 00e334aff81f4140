package templates

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/Conceptual-Machines/intprep/internal/models"
	"github.com/a-h/templ"
)

const (
	AppTitle   = "IntPrep ChatBot"
	AppTagline = "You fully interview preparation tool"
)

// FormData is what the interview form page renders
type FormData struct {
	Defaults   *models.GenerationRequest
	Candidates []string
	Version    string
}

// InterviewForm renders the full page: parameter form, output panel and the
// script that consumes the generation event stream
func InterviewForm(data FormData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return Layout(AppTitle, formBody(data)).Render(ctx, w)
	})
}

// Layout wraps body in the HTML document shell
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
<style>%s</style>
</head>
<body>
`, templ.EscapeString(title), pageCSS); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n</body>\n</html>\n")
		return err
	})
}

func formBody(data FormData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		d := data.Defaults
		var b strings.Builder

		fmt.Fprintf(&b, `<header><h1>%s</h1><p class="tagline">%s</p></header>
<main>
<form id="prep-form" autocomplete="off">
<label for="role">Role</label>
<input id="role" name="role" type="text" placeholder="e.g. Machine Learning Engineer" value="%s">
<label for="seniority">Seniority</label>
<select id="seniority" name="seniority">%s</select>
<label for="domain">Domain/Stack</label>
<input id="domain" name="domain" type="text" placeholder="e.g. NLP, MLOps, Backend, React, AWS" value="%s">
<label for="question_count">Number of questions: <output id="question_count_value">%d</output></label>
<input id="question_count" name="question_count" type="range" min="%d" max="%d" value="%d">
<label for="difficulty">Overall difficulty</label>
<select id="difficulty" name="difficulty">%s</select>
<fieldset><legend>Question styles</legend>%s</fieldset>
<label class="inline"><input id="include_rubrics" name="include_rubrics" type="checkbox"%s> Include brief evaluation rubrics</label>
<button id="generate" type="submit">Generate Q&amp;A</button>
</form>
<section id="output" aria-live="polite">
<p id="status" class="status"></p>
<p id="model" class="model" hidden></p>
<pre id="stream"></pre>
<div id="result" class="result"></div>
</section>
</main>
<footer>Models tried in order: %s &middot; %s</footer>
<script>%s</script>`,
			templ.EscapeString(AppTitle),
			templ.EscapeString(AppTagline),
			templ.EscapeString(d.Role),
			options(toStrings(models.Seniorities), string(d.Seniority)),
			templ.EscapeString(d.Domain),
			d.QuestionCount,
			models.MinQuestionCount, models.MaxQuestionCount, d.QuestionCount,
			options(toStrings(models.Difficulties), string(d.Difficulty)),
			styleCheckboxes(d.Styles),
			checked(d.IncludeRubrics),
			templ.EscapeString(strings.Join(data.Candidates, ", ")),
			templ.EscapeString(data.Version),
			pageScript,
		)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func options(values []string, selected string) string {
	var b strings.Builder
	for _, v := range values {
		sel := ""
		if v == selected {
			sel = " selected"
		}
		fmt.Fprintf(&b, `<option value="%s"%s>%s</option>`, templ.EscapeString(v), sel, templ.EscapeString(v))
	}
	return b.String()
}

func styleCheckboxes(selected []models.Style) string {
	var b strings.Builder
	for _, s := range models.Styles {
		fmt.Fprintf(&b, `<label class="inline"><input type="checkbox" name="styles" value="%s"%s> %s</label>`,
			templ.EscapeString(string(s)), checked(slices.Contains(selected, s)), templ.EscapeString(string(s)))
	}
	return b.String()
}

func checked(on bool) string {
	if on {
		return " checked"
	}
	return ""
}

func toStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

const pageCSS = `
body{font-family:system-ui,sans-serif;max-width:960px;margin:0 auto;padding:1.5rem;color:#1f2933}
header h1{margin-bottom:.2rem}.tagline{color:#52606d;margin-top:0}
form{display:grid;gap:.5rem;margin-bottom:1.5rem}
label.inline{display:inline-flex;gap:.3rem;margin-right:1rem}
fieldset{border:1px solid #cbd2d9;border-radius:6px}
button{padding:.6rem 1rem;font-size:1rem;cursor:pointer}
button:disabled{opacity:.6;cursor:wait}
.status{color:#52606d}.model{font-weight:600}.error{color:#b91c1c;white-space:pre-wrap}
pre{white-space:pre-wrap;background:#f5f7fa;padding:1rem;border-radius:6px}
pre:empty{display:none}
footer{margin-top:2rem;font-size:.8rem;color:#7b8794}
`

const pageScript = `
(function () {
  const form = document.getElementById("prep-form");
  const button = document.getElementById("generate");
  const statusEl = document.getElementById("status");
  const modelEl = document.getElementById("model");
  const streamEl = document.getElementById("stream");
  const resultEl = document.getElementById("result");
  const count = document.getElementById("question_count");
  const countValue = document.getElementById("question_count_value");

  count.addEventListener("input", () => { countValue.textContent = count.value; });

  function reset() {
    statusEl.textContent = "";
    statusEl.className = "status";
    modelEl.hidden = true;
    modelEl.textContent = "";
    streamEl.textContent = "";
    resultEl.innerHTML = "";
  }

  function showError(message) {
    statusEl.textContent = message;
    statusEl.className = "error";
  }

  function handle(event) {
    switch (event.type) {
      case "started":
        statusEl.textContent = event.message;
        break;
      case "model":
        modelEl.hidden = false;
        modelEl.textContent = "Using model: " + event.message;
        break;
      case "text_delta":
        streamEl.textContent += event.message;
        break;
      case "attempt_failed":
        streamEl.textContent = "";
        modelEl.hidden = true;
        break;
      case "completed":
        statusEl.textContent = (event.data && event.data.chars === 0)
          ? "Done. " + event.data.model + " returned no text."
          : "Done";
        if (event.data && event.data.html) {
          streamEl.textContent = "";
          resultEl.innerHTML = event.data.html;
        }
        break;
      case "error":
        showError(event.message);
        break;
    }
  }

  form.addEventListener("submit", async (e) => {
    e.preventDefault();
    reset();

    const body = {
      role: document.getElementById("role").value,
      seniority: document.getElementById("seniority").value,
      domain: document.getElementById("domain").value,
      question_count: parseInt(count.value, 10),
      difficulty: document.getElementById("difficulty").value,
      styles: Array.from(form.querySelectorAll("input[name=styles]:checked")).map((el) => el.value),
      include_rubrics: document.getElementById("include_rubrics").checked,
    };

    if (!body.role.trim()) {
      showError("Please enter a role to continue.");
      return;
    }

    button.disabled = true;
    try {
      const resp = await fetch("/api/v1/generations", {
        method: "POST",
        headers: { "Content-Type": "application/json", "Accept": "text/event-stream" },
        body: JSON.stringify(body),
      });
      if (!resp.ok) {
        const payload = await resp.json().catch(() => ({}));
        showError(payload.error || ("Request failed: " + resp.status));
        return;
      }

      const reader = resp.body.getReader();
      const decoder = new TextDecoder();
      let buffer = "";
      for (;;) {
        const { value, done } = await reader.read();
        if (done) break;
        buffer += decoder.decode(value, { stream: true });
        let sep;
        while ((sep = buffer.indexOf("\n\n")) >= 0) {
          const frame = buffer.slice(0, sep);
          buffer = buffer.slice(sep + 2);
          for (const line of frame.split("\n")) {
            if (line.startsWith("data: ")) {
              handle(JSON.parse(line.slice(6)));
            }
          }
        }
      }
    } catch (err) {
      showError("Connection error: " + err);
    } finally {
      button.disabled = false;
    }
  });
})();
`
