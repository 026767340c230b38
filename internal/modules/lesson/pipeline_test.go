package lesson

import (
	"context"
	"errors"
	"testing"

	"github.com/docentkit/docentkit-backend/internal/modules/lesson/groundtruth"
	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kit"
	"github.com/docentkit/docentkit-backend/internal/modules/lesson/protocols"
	pkgerrors "github.com/docentkit/docentkit-backend/internal/pkg/errors"
	"github.com/docentkit/docentkit-backend/internal/platform/openai"
)

type scriptedAI struct {
	responses []string
	calls     int
}

func (f *scriptedAI) Generate(_ context.Context, _ string, _ string, _ openai.GenerateOptions) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("no scripted response left")
}

const proceduralText = `# Handen wassen

**Hygiëne** is de basis van veilig werken in de zorg. Wie zijn handen goed wast,
voorkomt dat micro-organismen zich via de huid verspreiden naar bewoners en
collega's. **Desinfectie** met handalcohol is een aanvulling, maar vervangt het
wassen niet. In deze les oefenen we de volledige wasprocedure zoals die in elke
zorginstelling wordt gebruikt.

Goede handhygiëne kost maar een halve minuut, maar het effect is groot.
Onderzoek laat zien dat zorgverleners die de stappen volledig uitvoeren
aanzienlijk minder infecties overdragen. Neem daarom de tijd voor elke stap en
sla niets over, ook niet tijdens een drukke dienst.

Stap 1: Maak de handen nat met lauw stromend water.
Stap 2: Breng voldoende zeep aan op beide handen.
Stap 3: Wrijf de handen minstens twintig seconden over elkaar.
Stap 4: Droog de handen af met een papieren doekje.

Let op: gebruik nooit een gedeelde stoffen handdoek.
`

const proceduralResponse = `{
  "title": "Handen wassen",
  "quickStart": {"oneLiner": "Leer de wasprocedure in vier stappen", "keyConcepts": ["Hygiëne", "Desinfectie"], "check": "Kan elke leerling de vier stappen benoemen?", "timeAllocation": {"start": 10, "core": 35, "closing": 5}},
  "teacherScript": [
    {"time": "0", "phase": "start", "action": "open", "content": "Vraag wie vanochtend zijn handen heeft gewassen en waarom dat telt", "isGrounded": false},
    {"time": "10", "phase": "core", "action": "demo", "content": "Maak de handen nat met lauw stromend water", "sourceRef": "procedures[0]", "isGrounded": true},
    {"time": "17", "phase": "core", "action": "demo", "content": "Breng voldoende zeep aan op beide handen", "sourceRef": "procedures[1]", "isGrounded": true},
    {"time": "24", "phase": "core", "action": "demo", "content": "Wrijf de handen minstens twintig seconden over elkaar", "sourceRef": "procedures[2]", "isGrounded": true},
    {"time": "31", "phase": "core", "action": "demo", "content": "Droog de handen af met een papieren doekje", "sourceRef": "procedures[3]", "isGrounded": true},
    {"time": "38", "phase": "core", "action": "check", "content": "Benadruk: gebruik nooit een gedeelde stoffen handdoek", "sourceRef": "warnings[0]", "isGrounded": true},
    {"time": "45", "phase": "closing", "action": "summary", "content": "Vat de vier stappen samen en kondig de toets aan", "isGrounded": false}
  ],
  "discussionQuestions": [],
  "groupWork": {"title": "Oefenen in duo's", "durationMinutes": 15, "groupSize": 2, "roles": ["uitvoerder", "observator"], "materials": ["zeep", "papieren doekjes"], "steps": ["Was de handen volgens de stappen", "Observator vinkt elke stap af"], "rubric": "Alle vier stappen volledig en in de juiste volgorde"},
  "studentHandout": {"title": "Handen wassen", "exercises": ["Zet de vier stappen in de juiste volgorde"]},
  "slideAssets": [{"slide": 1, "title": "Handen wassen", "bullets": ["Nat maken", "Zeep", "Wrijven", "Drogen"]}]
}`

func TestPipelineProceduralScenario(t *testing.T) {
	ai := &scriptedAI{responses: []string{proceduralResponse}}
	res, err := Run(context.Background(), Deps{AI: ai}, RunInput{
		ModuleID: "wash-01",
		RawText:  proceduralText,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.OK || res.Kit == nil {
		t.Fatalf("expected success envelope, got %+v", res)
	}
	if res.Kit.ProtocolUsed != protocols.ProceduralSkillID {
		t.Fatalf("protocol = %q, want procedural", res.Kit.ProtocolUsed)
	}

	var demoRefs []int
	for _, it := range res.Kit.TeacherScript {
		if it.Action == kit.ActionDemo && it.SourceRef != nil &&
			it.SourceRef.Collection == groundtruth.CollectionProcedures {
			demoRefs = append(demoRefs, it.SourceRef.Index)
		}
	}
	if len(demoRefs) != 4 {
		t.Fatalf("demo items = %d, want exactly 4", len(demoRefs))
	}
	for i, idx := range demoRefs {
		if idx != i {
			t.Fatalf("demo refs = %v, want distinct ascending 0..3", demoRefs)
		}
	}

	for _, f := range res.Validation.Findings {
		if f.Code == "missing-procedure" {
			t.Fatalf("unexpected missing-procedure finding: %+v", f)
		}
	}
	if res.Validation.GroundingScore != 1 {
		t.Fatalf("grounding = %v, want 1 with all refs resolvable", res.Validation.GroundingScore)
	}
}

const communicationText = `# Omgaan met weerstand

**Empathie** bepaalt of een lastig gesprek slaagt of vastloopt. Een bewoner die
boos reageert, wil in de eerste plaats gehoord worden. **Actief luisteren**
betekent dat je samenvat wat de ander zegt voordat je zelf iets inbrengt.

Wie meteen in de verdediging schiet, maakt de weerstand alleen maar groter.
Neem de tijd, houd oogcontact en benoem wat je bij de ander ziet gebeuren.
Daarna pas leg je uit wat er wel en niet mogelijk is. Zo houd je de relatie
goed, ook als het antwoord voor de bewoner tegenvalt. Oefen deze gesprekken
regelmatig met collega's, want juist onder tijdsdruk val je terug op oude
gewoonten en schiet je toch weer in de verdediging.

Fout: Dat valt heus wel mee, morgen bent u het vergeten.
Goed: Ik zie dat dit u echt dwarszit, vertel eens.

Fout: Daar ga ik niet over, dat moet u aan de arts vragen.
Goed: Ik zoek voor u uit wie hier een antwoord op heeft.
`

const communicationResponse = `{
  "title": "Omgaan met weerstand",
  "quickStart": {"oneLiner": "Herken weerstand en buig het gesprek om", "keyConcepts": ["Empathie", "Actief luisteren"], "check": "Kunnen leerlingen een afwijzende reactie ombuigen?", "timeAllocation": {"start": 10, "core": 35, "closing": 5}},
  "teacherScript": [
    {"time": "0", "phase": "start", "action": "open", "content": "Speel een boze bewoner na en vraag de klas wat ze zouden zeggen", "isGrounded": false},
    {"time": "10", "phase": "core", "action": "demo", "content": "Toon de foute reactie: dat valt heus wel mee", "sourceRef": "correctIncorrectPairs[0]", "isGrounded": true},
    {"time": "15", "phase": "core", "action": "question", "content": "Wat doet deze reactie met de bewoner?", "sourceRef": "correctIncorrectPairs[0]", "isGrounded": true, "expectedAnswers": ["De bewoner voelt zich niet serieus genomen"], "ifNoAnswer": "Vraag hoe zij zich zouden voelen bij dit antwoord"},
    {"time": "20", "phase": "core", "action": "demo", "content": "Toon de goede reactie: ik zie dat dit u echt dwarszit", "sourceRef": "correctIncorrectPairs[0]", "isGrounded": true},
    {"time": "27", "phase": "core", "action": "demo", "content": "Toon het tweede paar over doorverwijzen naar de arts", "sourceRef": "correctIncorrectPairs[1]", "isGrounded": true},
    {"time": "45", "phase": "closing", "action": "summary", "content": "Vat samen: eerst erkennen, dan pas uitleggen", "isGrounded": false}
  ],
  "discussionQuestions": [],
  "groupWork": {"title": "", "durationMinutes": 0, "groupSize": 0, "materials": [], "steps": [], "rubric": ""},
  "studentHandout": {"title": "Omgaan met weerstand", "exercises": ["Schrijf bij elke foute reactie een beter alternatief"]},
  "slideAssets": []
}`

func TestPipelineCommunicationScenario(t *testing.T) {
	ai := &scriptedAI{responses: []string{communicationResponse}}
	res, err := Run(context.Background(), Deps{AI: ai}, RunInput{
		ModuleID: "resist-01",
		RawText:  communicationText,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Kit.ProtocolUsed != protocols.InterpersonalCommunicationID {
		t.Fatalf("protocol = %q, want communication", res.Kit.ProtocolUsed)
	}
	if len(res.Kit.DiscussionQuestions) == 0 {
		t.Fatalf("discussion questions must be synthesized from unused pairs")
	}
	foundPairRef := false
	for _, q := range res.Kit.DiscussionQuestions {
		if q.SourceRef != nil && q.SourceRef.Collection == groundtruth.CollectionPairs {
			foundPairRef = true
		}
	}
	if !foundPairRef {
		t.Fatalf("no discussion question references a contrast pair: %+v", res.Kit.DiscussionQuestions)
	}
	if len(res.Kit.GroupWork.Roles) == 0 {
		t.Fatalf("role play should be synthesized for communication kits")
	}
}

func TestPipelineHaltsOnThinInput(t *testing.T) {
	ai := &scriptedAI{}
	res, err := Run(context.Background(), Deps{AI: ai}, RunInput{
		ModuleID: "thin-01",
		RawText:  "Veel te kort om een les van te maken.",
	})
	if !errors.Is(err, pkgerrors.ErrInsufficientInput) {
		t.Fatalf("err = %v, want ErrInsufficientInput", err)
	}
	if res.OK {
		t.Fatalf("envelope must report failure")
	}
	if ai.calls != 0 {
		t.Fatalf("generation calls = %d, want 0 before the validity gate", ai.calls)
	}
}

func TestPipelineUnknownForcedProtocol(t *testing.T) {
	ai := &scriptedAI{}
	res, err := Run(context.Background(), Deps{AI: ai}, RunInput{
		ModuleID:   "bogus-01",
		RawText:    proceduralText,
		ProtocolID: "bogus",
	})
	if !errors.Is(err, pkgerrors.ErrUnknownProtocol) {
		t.Fatalf("err = %v, want ErrUnknownProtocol", err)
	}
	if res.OK || ai.calls != 0 {
		t.Fatalf("unknown protocol must fail before any work, calls = %d", ai.calls)
	}
}

func TestPipelineScaffoldPath(t *testing.T) {
	ai := &scriptedAI{}
	res, err := Run(context.Background(), Deps{AI: ai}, RunInput{
		ModuleID:       "scaffold-01",
		RawText:        proceduralText,
		SkipGeneration: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if ai.calls != 0 {
		t.Fatalf("scaffold path must not generate, calls = %d", ai.calls)
	}
	if !res.Kit.NeedsReview {
		t.Fatalf("scaffold kit must stay flagged for review after validation")
	}
	if res.Kit.BuildID == "" {
		t.Fatalf("build id not assigned")
	}
}
