package sqlinline

const QListProjectIDs = `--sql 72328664-0553-454e-be25-f597564ef2eb
select distinct project_id
from (
  select project_id from artifacts
  union
  select project_id from clips
  union
  select project_id from jobs
) p
order by project_id;
`

// QListArtifactReferences backs orphan detection: every storage key a live
// record still points at, whether as a stored artifact, a clip source, or a
// cached clip rendition.
const QListArtifactReferences = `--sql aaafd5c3-2bcc-4abd-ac4f-f4834f12ccce
select key from artifacts where project_id = $1::text
union
select artifact_key from clips where project_id = $1::text
union
select edited_key from clips where project_id = $1::text and edited_key <> '';
`
