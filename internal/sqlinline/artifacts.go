package sqlinline

const QUpsertArtifact = `--sql 286f5afc-9d33-47e9-b7f6-1502ff7e15fa
insert into artifacts(key, local_path, size_bytes, mime, project_id, category, created_at)
values ($1::text, $2::text, $3::bigint, $4::text, $5::text, $6::text, now())
on conflict (key) do update
set local_path = excluded.local_path,
    size_bytes = excluded.size_bytes,
    mime = excluded.mime;
`

const QSelectArtifactByKey = `--sql 693bbb93-0713-4872-9bac-94dbf46a3676
select key, local_path, size_bytes, mime, project_id, category, created_at
from artifacts
where key = $1::text
limit 1;
`

const QListArtifactsByProject = `--sql 41cd0b30-f9a1-4cca-9669-de93c715785c
select key, local_path, size_bytes, mime, project_id, category, created_at
from artifacts
where project_id = $1::text
order by created_at desc;
`

const QDeleteArtifactByKey = `--sql d2b19e7c-a7c8-49e2-8add-2e0fc3f8d087
delete from artifacts
where key = $1::text;
`
